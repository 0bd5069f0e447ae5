package scan

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ScanHTML runs the scanning pipeline over a static HTML document. It
// serves saved pages and fixtures; visibility is limited to attribute
// heuristics and custom dropdown options cannot be harvested (their option
// sets stay empty, the same degraded outcome as a failed live extraction).
func ScanHTML(doc string) ([]Question, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	w := newStaticWalker(root)
	return buildQuestions(w.harvest()), nil
}

type staticWalker struct {
	root      *html.Node
	byID      map[string]*html.Node
	labelFor  map[string]*html.Node
	parents   map[*html.Node]*html.Node
	tagCounts map[*html.Node]int // nth-of-type position
}

func newStaticWalker(root *html.Node) *staticWalker {
	w := &staticWalker{
		root:      root,
		byID:      make(map[string]*html.Node),
		labelFor:  make(map[string]*html.Node),
		parents:   make(map[*html.Node]*html.Node),
		tagCounts: make(map[*html.Node]int),
	}
	w.index(root, nil)
	return w
}

func (w *staticWalker) index(n *html.Node, parent *html.Node) {
	if n.Type == html.ElementNode {
		w.parents[n] = parent
		if id := attr(n, "id"); id != "" {
			w.byID[id] = n
		}
		if n.Data == "label" {
			if forID := attr(n, "for"); forID != "" {
				w.labelFor[forID] = n
			}
		}
		// nth-of-type among same-tag siblings
		pos := 1
		for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
			if sib.Type == html.ElementNode && sib.Data == n.Data {
				pos++
			}
		}
		w.tagCounts[n] = pos
		parent = n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.index(c, parent)
	}
}

func (w *staticWalker) harvest() []candidate {
	var cands []candidate
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if c, ok := w.candidateFor(n); ok {
				cands = append(cands, c)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(w.root)
	return cands
}

func (w *staticWalker) candidateFor(n *html.Node) (candidate, bool) {
	tag := n.Data
	role := strings.ToLower(attr(n, "role"))
	hasPopup := strings.ToLower(attr(n, "aria-haspopup"))

	isField := tag == "input" || tag == "textarea" || tag == "select"
	isCombo := role == "combobox" || hasPopup == "listbox"
	if !isField && !isCombo {
		return candidate{}, false
	}
	// A combobox wrapper covered by an enclosed field is skipped; the
	// field inherits its dropdown signals below.
	if !isField && containsField(n) {
		return candidate{}, false
	}
	if isField {
		if wrapper := w.closestCombobox(n); wrapper != nil {
			if role == "" {
				role = strings.ToLower(attr(wrapper, "role"))
			}
			if hasPopup == "" {
				hasPopup = strings.ToLower(attr(wrapper, "aria-haspopup"))
			}
		}
	}

	var options []string
	if tag == "select" {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collectOptionText(c, &options)
		}
	}

	return candidate{
		Tag:              tag,
		TypeAttr:         strings.ToLower(attr(n, "type")),
		Role:             role,
		AriaHasPopup:     hasPopup,
		ID:               attr(n, "id"),
		Name:             attr(n, "name"),
		Placeholder:      attr(n, "placeholder"),
		Value:            attr(n, "value"),
		Required:         hasAttr(n, "required") || attr(n, "aria-required") == "true",
		Visible:          staticVisible(n, w.parents),
		Trap:             staticTrapped(n, w.parents),
		Options:          options,
		AriaLabel:        attr(n, "aria-label"),
		ForLabel:         w.forLabelText(n),
		WrappingLabel:    w.wrappingLabelText(n),
		AriaLabelledBy:   w.labelledByText(n),
		PrecedingSibling: precedingSiblingText(n),
		Container:        w.containerText(n),
		Locator:          w.locatorFor(n),
	}, true
}

func (w *staticWalker) closestCombobox(n *html.Node) *html.Node {
	for p := w.parents[n]; p != nil; p = w.parents[p] {
		role := strings.ToLower(attr(p, "role"))
		if role == "combobox" || strings.ToLower(attr(p, "aria-haspopup")) == "listbox" {
			return p
		}
	}
	return nil
}

func (w *staticWalker) forLabelText(n *html.Node) string {
	id := attr(n, "id")
	if id == "" {
		return ""
	}
	return nodeText(w.labelFor[id])
}

func (w *staticWalker) wrappingLabelText(n *html.Node) string {
	for p := w.parents[n]; p != nil; p = w.parents[p] {
		if p.Data == "label" {
			return nodeText(p)
		}
	}
	return ""
}

func (w *staticWalker) labelledByText(n *html.Node) string {
	ids := strings.Fields(attr(n, "aria-labelledby"))
	var parts []string
	for _, id := range ids {
		if t := nodeText(w.byID[id]); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (w *staticWalker) containerText(n *html.Node) string {
	// Fieldset legend first.
	for p := w.parents[n]; p != nil; p = w.parents[p] {
		if p.Data == "fieldset" {
			if legend := firstChildTag(p, "legend"); legend != nil {
				if t := nodeText(legend); t != "" {
					return t
				}
			}
		}
	}
	// Then a nearby label/legend inside an ancestor wrapper.
	depth := 0
	for p := w.parents[n]; p != nil && depth < 3; p = w.parents[p] {
		if lbl := findLabelish(p); lbl != nil {
			if t := nodeText(lbl); t != "" {
				return t
			}
		}
		depth++
	}
	return ""
}

func (w *staticWalker) locatorFor(n *html.Node) string {
	if id := attr(n, "id"); id != "" {
		return "#" + id
	}
	if name := attr(n, "name"); name != "" {
		return fmt.Sprintf(`%s[name=%q]`, n.Data, name)
	}
	var parts []string
	for node := n; node != nil && node.Data != "body"; node = w.parents[node] {
		part := node.Data
		if pos := w.tagCounts[node]; pos > 1 {
			part = fmt.Sprintf("%s:nth-of-type(%d)", part, pos)
		}
		parts = append([]string{part}, parts...)
	}
	return strings.Join(parts, " > ")
}

// staticVisible applies attribute-only visibility heuristics: explicit
// hidden attribute or inline display:none / visibility:hidden on the
// element or an ancestor.
func staticVisible(n *html.Node, parents map[*html.Node]*html.Node) bool {
	for node := n; node != nil; node = parents[node] {
		if hasAttr(node, "hidden") {
			return false
		}
		style := strings.ReplaceAll(strings.ToLower(attr(node, "style")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") || strings.Contains(style, "opacity:0;") || strings.HasSuffix(style, "opacity:0") {
			return false
		}
	}
	return true
}

// staticTrapped flags ARIA-hidden controls; offscreen placement needs
// layout and is only observable on the live path.
func staticTrapped(n *html.Node, parents map[*html.Node]*html.Node) bool {
	for node := n; node != nil; node = parents[node] {
		if attr(node, "aria-hidden") == "true" {
			return true
		}
	}
	return false
}

func precedingSiblingText(n *html.Node) string {
	count := 0
	for sib := n.PrevSibling; sib != nil && count < 3; sib = sib.PrevSibling {
		if sib.Type != html.ElementNode {
			continue
		}
		count++
		if t := nodeText(sib); t != "" {
			return t
		}
	}
	return ""
}

func collectOptionText(n *html.Node, out *[]string) {
	if n.Type == html.ElementNode && n.Data == "option" {
		*out = append(*out, strings.TrimSpace(nodeText(n)))
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectOptionText(c, out)
	}
}

func containsField(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			if c.Data == "input" || c.Data == "textarea" || c.Data == "select" {
				return true
			}
			if containsField(c) {
				return true
			}
		}
	}
	return false
}

func firstChildTag(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
	}
	return nil
}

// findLabelish locates a label or legend descendant of container that does
// not wrap a form control. A label wrapping a control belongs to that
// control (e.g. a sibling radio's option label), never to the group.
func findLabelish(container *html.Node) *html.Node {
	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && (n.Data == "label" || n.Data == "legend") {
			if !containsField(n) {
				found = n
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(container)
	return found
}

func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
