package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findQuestion(t *testing.T, qs []Question, text string) Question {
	t.Helper()
	for _, q := range qs {
		if q.Text == text {
			return q
		}
	}
	t.Fatalf("question %q not found in %v", text, qs)
	return Question{}
}

func hasQuestion(qs []Question, text string) bool {
	for _, q := range qs {
		if q.Text == text {
			return true
		}
	}
	return false
}

func TestScanHTMLLabelCascade(t *testing.T) {
	const doc = `
<html><body><form>
  <label for="aria">ignored, aria-label wins</label>
  <input id="aria" type="text" aria-label="Preferred Pronouns">

  <label for="fn">First Name</label>
  <input id="fn" type="text" required>

  <label>Last Name <input type="text" name="last"></label>

  <span id="lbl-a">Desired</span> <span id="lbl-b">Salary</span>
  <input type="text" name="comp" aria-labelledby="lbl-a lbl-b">

  <div>LinkedIn Profile</div>
  <input type="text" name="li_url">

  <div>
    <label>Cover Letter</label>
    <div><textarea name="cl"></textarea></div>
  </div>

  <div><div><div>
    <input type="text" name="job_application[phone_number]">
  </div></div></div>
</form></body></html>`

	qs, err := ScanHTML(doc)
	require.NoError(t, err)

	// aria-label beats the <label for> pointing at the same element
	assert.True(t, hasQuestion(qs, "Preferred Pronouns"))
	assert.False(t, hasQuestion(qs, "ignored, aria-label wins"))

	first := findQuestion(t, qs, "First Name")
	assert.Equal(t, FieldText, first.FieldType)
	assert.True(t, first.Required)
	assert.Equal(t, "#fn", first.Locator)

	last := findQuestion(t, qs, "Last Name")
	assert.Equal(t, `input[name="last"]`, last.Locator)

	assert.True(t, hasQuestion(qs, "Desired Salary"), "aria-labelledby should join target texts")
	assert.True(t, hasQuestion(qs, "LinkedIn Profile"), "preceding sibling text")
	assert.True(t, hasQuestion(qs, "Cover Letter"), "container label heuristic")
	assert.True(t, hasQuestion(qs, "phone number"), "humanized name fallback")
}

func TestScanHTMLDropsNonFields(t *testing.T) {
	const doc = `
<html><body><form>
  <input type="hidden" name="csrf" value="tok">
  <input type="submit" value="Apply">
  <input type="text" name="ghost" aria-label="Hidden Field" style="display: none">
  <div style="visibility:hidden"><input type="text" aria-label="Inside Hidden Ancestor"></div>
  <input type="text" name="shown" aria-label="Visible Field">
</form></body></html>`

	qs, err := ScanHTML(doc)
	require.NoError(t, err)

	require.Len(t, qs, 1)
	assert.Equal(t, "Visible Field", qs[0].Text)
}

func TestScanHTMLNativeSelect(t *testing.T) {
	const doc = `
<html><body><form>
  <label for="country">Country *</label>
  <select id="country">
    <option value="">Select one</option>
    <option>United States</option>
    <option>Canada</option>
    <option>United States</option>
  </select>
</form></body></html>`

	qs, err := ScanHTML(doc)
	require.NoError(t, err)
	require.Len(t, qs, 1)

	q := qs[0]
	assert.Equal(t, "Country", q.Text, "trailing asterisk stripped from text")
	assert.Equal(t, FieldSelectNative, q.FieldType)
	assert.True(t, q.Required, "asterisk in label marks required")
	assert.Equal(t, []string{"United States", "Canada"}, q.Options)
}

func TestScanHTMLCustomDropdown(t *testing.T) {
	// An input styled as a dropdown must classify DROPDOWN_CUSTOM even
	// though its tag-level type says text.
	const doc = `
<html><body><form>
  <label for="src">How did you hear about us?</label>
  <input id="src" type="text" role="combobox">

  <div role="combobox" aria-haspopup="listbox">
    <label for="loc">Office Location</label>
    <input id="loc" type="text">
  </div>
</form></body></html>`

	qs, err := ScanHTML(doc)
	require.NoError(t, err)
	require.Len(t, qs, 2, "combobox wrapper must not produce its own question")

	src := findQuestion(t, qs, "How did you hear about us?")
	assert.Equal(t, FieldDropdownCustom, src.FieldType)
	assert.Empty(t, src.Options, "static scan cannot harvest custom dropdown options")

	loc := findQuestion(t, qs, "Office Location")
	assert.Equal(t, FieldDropdownCustom, loc.FieldType, "inner input inherits wrapper dropdown signals")
}

func TestScanHTMLRadioGroup(t *testing.T) {
	const doc = `
<html><body><form>
  <fieldset>
    <legend>Are you legally authorized to work in the United States?</legend>
    <label for="auth-y">Yes</label><input id="auth-y" type="radio" name="auth" required>
    <label for="auth-n">No</label><input id="auth-n" type="radio" name="auth">
  </fieldset>
</form></body></html>`

	qs, err := ScanHTML(doc)
	require.NoError(t, err)
	require.Len(t, qs, 1, "radios sharing a name collapse into one question")

	q := qs[0]
	assert.Equal(t, "Are you legally authorized to work in the United States?", q.Text)
	assert.Equal(t, FieldRadio, q.FieldType)
	assert.Equal(t, []string{"Yes", "No"}, q.Options)
	assert.True(t, q.Required)
	assert.Equal(t, `input[type="radio"][name="auth"]`, q.Locator)
}

func TestScanHTMLRadioOptionsFromWrappingLabels(t *testing.T) {
	const doc = `
<html><body><form>
  <div>
    <label>Veteran Status</label>
    <div>
      <label><input type="radio" name="vet" value="1"> I am a veteran</label>
      <label><input type="radio" name="vet" value="2"> I am not a veteran</label>
    </div>
  </div>
</form></body></html>`

	qs, err := ScanHTML(doc)
	require.NoError(t, err)
	require.Len(t, qs, 1)

	assert.Equal(t, "Veteran Status", qs[0].Text)
	assert.Equal(t, []string{"I am a veteran", "I am not a veteran"}, qs[0].Options)
}

func TestScanHTMLDeduplicatesQuestions(t *testing.T) {
	const doc = `
<html><body><form>
  <label for="e1">Email</label><input id="e1" type="email">
  <label for="e2">Email:</label><input id="e2" type="email">
</form></body></html>`

	qs, err := ScanHTML(doc)
	require.NoError(t, err)
	require.Len(t, qs, 1, "normalized-equal question texts keep first occurrence only")
	assert.Equal(t, "#e1", qs[0].Locator)
	assert.Equal(t, FieldEmail, qs[0].FieldType)
}

func TestScanHTMLFieldTypes(t *testing.T) {
	const doc = `
<html><body><form>
  <label for="f1">Resume</label><input id="f1" type="file">
  <label for="f2">Phone</label><input id="f2" type="tel">
  <label for="f3">Start Date</label><input id="f3" type="date">
  <label for="f4">Expected Salary</label><input id="f4" type="number">
  <label for="f5">I agree to the privacy policy</label><input id="f5" type="checkbox">
  <label for="f6">Why do you want to work here?</label><textarea id="f6"></textarea>
</form></body></html>`

	qs, err := ScanHTML(doc)
	require.NoError(t, err)

	assert.Equal(t, FieldFile, findQuestion(t, qs, "Resume").FieldType)
	assert.Equal(t, FieldPhone, findQuestion(t, qs, "Phone").FieldType)
	assert.Equal(t, FieldDate, findQuestion(t, qs, "Start Date").FieldType)
	assert.Equal(t, FieldNumber, findQuestion(t, qs, "Expected Salary").FieldType)
	assert.Equal(t, FieldCheckbox, findQuestion(t, qs, "I agree to the privacy policy").FieldType)
	assert.Equal(t, FieldTextarea, findQuestion(t, qs, "Why do you want to work here?").FieldType)
}

func TestScanHTMLUnlabelableDropped(t *testing.T) {
	const doc = `<html><body><form><input type="text"></form></body></html>`
	qs, err := ScanHTML(doc)
	require.NoError(t, err)
	assert.Empty(t, qs, "field with no label source and no name is dropped")
}
