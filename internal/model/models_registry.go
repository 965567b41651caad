package model

// AllModels lists every GORM model for auto-migration.
var AllModels = []any{
	&CrawlRecord{},
	&PageRecord{},
	&LinkRecord{},
	&ErrorRecord{},
	&SessionRecord{},
}
