package postgres

// Tables holds the prefixed names of the host platform tables
type Tables struct {
	Posts             string
	PostMeta          string
	Terms             string
	TermTaxonomy      string
	TermRelationships string
	TermMeta          string
	Options           string
	SiteMeta          string
	SyncLog           string
}

// NewTables builds table names for a WordPress table prefix such as "wp_".
// The prefix is validated by config before it reaches here.
func NewTables(prefix string) Tables {
	return Tables{
		Posts:             prefix + "posts",
		PostMeta:          prefix + "postmeta",
		Terms:             prefix + "terms",
		TermTaxonomy:      prefix + "term_taxonomy",
		TermRelationships: prefix + "term_relationships",
		TermMeta:          prefix + "termmeta",
		Options:           prefix + "options",
		SiteMeta:          prefix + "sitemeta",
		SyncLog:           prefix + "gancio_sync_log",
	}
}
