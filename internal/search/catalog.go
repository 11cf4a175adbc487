// Package search implements the progressive deep search engine: up to five
// widening strategies run in order against a target model until one yields
// a result, or all five run in exhaustive mode.
package search

// ModelConfig is one entry in the per-model search catalog.
type ModelConfig struct {
	// NameField is the exact-match field for level 1 (defaults to "name").
	NameField string
	// SearchFields are OR'd against whitespace-split query words for the
	// standard ilike level.
	SearchFields []string
	// DeepSearchFields extend SearchFields for the extended ilike level,
	// each guarded by field-existence in the registry before use.
	DeepSearchFields []string
	// RelatedModel and RelatedField describe the level-4 expansion: the
	// res.partner-shaped model this model links to, and the field on this
	// model that carries the link.
	RelatedModel string
	RelatedField string
	// Chatter enables level 5 (message-body full text search) for models
	// that carry a chatter thread.
	Chatter bool
}

// DefaultCatalog returns the fixed per-model configuration the
// specification ships out of the box: partners, orders, invoices, leads,
// tickets, products, and tasks. Models absent from the catalog fall back to
// DefaultConfig.
func DefaultCatalog() map[string]ModelConfig {
	return map[string]ModelConfig{
		"res.partner": {
			NameField:        "name",
			SearchFields:     []string{"name", "email", "phone"},
			DeepSearchFields: []string{"ref", "vat", "street", "city"},
			Chatter:          true,
		},
		"sale.order": {
			NameField:        "name",
			SearchFields:     []string{"name", "client_order_ref"},
			DeepSearchFields: []string{"origin", "note"},
			RelatedModel:     "res.partner",
			RelatedField:     "partner_id",
			Chatter:          true,
		},
		"account.move": {
			NameField:        "name",
			SearchFields:     []string{"name", "ref", "invoice_origin"},
			DeepSearchFields: []string{"narration"},
			RelatedModel:     "res.partner",
			RelatedField:     "partner_id",
			Chatter:          true,
		},
		"crm.lead": {
			NameField:        "name",
			SearchFields:     []string{"name", "email_from", "phone", "contact_name"},
			DeepSearchFields: []string{"description", "street", "city"},
			RelatedModel:     "res.partner",
			RelatedField:     "partner_id",
			Chatter:          true,
		},
		"helpdesk.ticket": {
			NameField:        "name",
			SearchFields:     []string{"name", "partner_email"},
			DeepSearchFields: []string{"description"},
			RelatedModel:     "res.partner",
			RelatedField:     "partner_id",
			Chatter:          true,
		},
		"product.product": {
			NameField:        "name",
			SearchFields:     []string{"name", "default_code", "barcode"},
			DeepSearchFields: []string{"description_sale"},
			Chatter:          false,
		},
		"project.task": {
			NameField:        "name",
			SearchFields:     []string{"name"},
			DeepSearchFields: []string{"description"},
			RelatedModel:     "res.partner",
			RelatedField:     "partner_id",
			Chatter:          true,
		},
	}
}

// DefaultConfig is the fallback for any model absent from the catalog: name
// field only, ilike only, no deep fields, no related expansion, no chatter.
func DefaultConfig() ModelConfig {
	return ModelConfig{NameField: "name", SearchFields: []string{"name"}}
}
