package catalog

// stopWords are excluded from keyword extraction.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "your": true,
	"has": true, "have": true, "had": true, "this": true, "that": true,
	"with": true, "from": true, "they": true, "will": true, "would": true,
	"there": true, "their": true, "what": true, "about": true, "which": true,
	"when": true, "make": true, "like": true, "time": true, "just": true,
	"him": true, "know": true, "take": true, "into": true, "year": true,
	"them": true, "some": true, "could": true, "than": true, "then": true,
	"its": true, "also": true, "after": true, "use": true, "how": true,
	"get": true, "more": true, "other": true, "these": true, "most": true,
	"been": true, "who": true, "were": true, "where": true, "does": true,
	"here": true, "over": true, "such": true, "only": true, "new": true,
	"any": true, "each": true, "way": true, "well": true, "because": true,
}
