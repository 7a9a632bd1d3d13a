package filtering

// BulkSendSteps returns the pipeline applied before messaging several candidates.
func BulkSendSteps() []Filter {
	return []Filter{NewExclude(), NewPosition(), NewPhone(), NewLimit()}
}

// ListingSteps returns the pipeline used to list candidates of a position.
func ListingSteps() []Filter {
	return []Filter{NewPosition(), NewLimit()}
}

// BestSteps returns the pipeline used to pick the strongest candidates of a position.
func BestSteps() []Filter {
	return []Filter{NewExclude(), NewPosition(), NewTop()}
}
