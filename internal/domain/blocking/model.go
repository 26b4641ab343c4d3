package blocking

// BulkResult reports a bulk unblock. Failures never abort the batch.
type BulkResult struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []BulkFailure `json:"failures"`
}

type BulkFailure struct {
	Target string `json:"target"`
	Error  string `json:"error"`
}

type RangeInput struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}
