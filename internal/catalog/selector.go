package catalog

import "github.com/andybalholm/cascadia"

// compileSelectorCheck validates a CSS selector string at load time so a
// typo in the descriptor file fails fast at startup rather than silently
// falling back to the generic extractor on every search.
func compileSelectorCheck(sel string) (cascadia.Sel, error) {
	if sel == "" {
		return nil, nil
	}
	return cascadia.Parse(sel)
}
