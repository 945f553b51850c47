package editor

import "github.com/rivo/uniseg"

// clusters splits s into its grapheme clusters, the editor's unit of
// cursor movement and deletion per spec.md §4.5.
func clusters(s string) []string {
	var out []string
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}

// displayWidth returns the terminal cell width of a single grapheme
// cluster: 1 for ASCII, 2 for wide CJK/emoji, 0 for bare combining marks,
// and a ZWJ sequence counts as its base grapheme's width, all of which
// uniseg.StringWidth already resolves per UAX #11/#29.
func displayWidth(cluster string) int {
	return uniseg.StringWidth(cluster)
}

// totalWidth sums the display width of every cluster in cs.
func totalWidth(cs []string) int {
	w := 0
	for _, c := range cs {
		w += displayWidth(c)
	}
	return w
}

// visualWidth returns the terminal cell width of a whole rendered line
// (prompt+buffer, or the search prompt), for the redraw protocol's
// shrink-padding calculation.
func visualWidth(s string) int {
	return uniseg.StringWidth(s)
}
