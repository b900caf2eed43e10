package constants

// ResultStatus is the canonical status for rows in ocr_image_results.
type ResultStatus string

// Stable values (store these exact strings in DB).
const (
	ResultStatusOK    ResultStatus = "OK"    // best text is non-empty
	ResultStatusEmpty ResultStatus = "EMPTY" // every backend came back empty
	ResultStatusError ResultStatus = "ERROR" // image could not be processed
)
