package hybridexcel

import "strings"

// worksheetChildOrder is the sequence the worksheet schema imposes on the
// children of <worksheet>.
var worksheetChildOrder = []string{
	"sheetPr",
	"dimension",
	"sheetViews",
	"sheetFormatPr",
	"cols",
	"sheetData",
	"sheetCalcPr",
	"sheetProtection",
	"protectedRanges",
	"scenarios",
	"autoFilter",
	"sortState",
	"dataConsolidate",
	"customSheetViews",
	"mergeCells",
	"phoneticPr",
	"conditionalFormatting",
	"dataValidations",
	"hyperlinks",
	"printOptions",
	"pageMargins",
	"pageSetup",
	"headerFooter",
	"rowBreaks",
	"colBreaks",
	"customProperties",
	"cellWatches",
	"ignoredErrors",
	"smartTags",
	"drawing",
	"legacyDrawing",
	"legacyDrawingHF",
	"drawingHF",
	"picture",
	"oleObjects",
	"controls",
	"webPublishItems",
	"tableParts",
	"extLst",
}

var worksheetChildRank = func() map[string]int {
	m := make(map[string]int, len(worksheetChildOrder))
	for i, name := range worksheetChildOrder {
		m[name] = i
	}
	return m
}()

// childRank returns the schema position of a worksheet child, or -1 for
// elements outside the main namespace or unknown to the schema. prefix is
// the worksheet element's own prefix.
func childRank(name, prefix string) int {
	local, ok := localName(name, prefix)
	if !ok {
		return -1
	}
	if r, ok := worksheetChildRank[local]; ok {
		return r
	}
	return -1
}

// localName strips prefix from name. ok is false when name carries a
// different prefix.
func localName(name, prefix string) (string, bool) {
	i := strings.IndexByte(name, ':')
	if i < 0 {
		return name, prefix == ""
	}
	if name[:i] != prefix {
		return "", false
	}
	return name[i+1:], true
}

// withPrefix renames a freshly built fragment into the worksheet's prefix.
func withPrefix(n *Node, prefix string) *Node {
	if prefix == "" || n.Kind != elementNode {
		return n
	}
	n.Name = prefix + ":" + n.Name
	for _, c := range n.Children {
		withPrefix(c, prefix)
	}
	return n
}

func namePrefix(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return ""
}
