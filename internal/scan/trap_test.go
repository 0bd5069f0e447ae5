package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrapSignals(t *testing.T) {
	tests := []struct {
		name string
		c    candidate
		want bool
	}{
		{"clean field", candidate{Name: "first_name"}, false},
		{"honeypot name", candidate{Name: "contact_honeypot"}, true},
		{"bot-field id", candidate{ID: "bot-field-2"}, true},
		{"leave blank", candidate{Name: "leave_blank"}, true},
		{"backend placement flag", candidate{Name: "email", Trap: true}, true},
		// "robotics" must not trip the bot token.
		{"legitimate bot substring", candidate{Name: "robotics_experience"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, len(trapSignals(tt.c)) > 0)
		})
	}
}

func TestScanHTMLDropsTrapFields(t *testing.T) {
	const doc = `
<html><body><form>
  <label for="real">Email</label>
  <input id="real" type="email">

  <label for="hp">Email</label>
  <input id="hp" type="email" name="email_honeypot">

  <div aria-hidden="true">
    <label for="decoy">Fax</label>
    <input id="decoy" type="text">
  </div>
</form></body></html>`

	qs, err := ScanHTML(doc)
	require.NoError(t, err)

	require.Len(t, qs, 1)
	assert.Equal(t, "#real", qs[0].Locator)
}
