package constants

// Backend names. They key all_results and name the candidates the backends produce.
const (
	MethodNone             = "none"
	MethodTesseract        = "tesseract"
	MethodTrOCRPrinted     = "trocr_printed"
	MethodTrOCRHandwritten = "trocr_handwritten"
)

// Model ids reported by the neural backends.
const (
	ModelTrOCRPrinted     = "microsoft/trocr-base-printed"
	ModelTrOCRHandwritten = "microsoft/trocr-base-handwritten"
)

// TesseractMethod is the candidate method for the winning tesseract profile, e.g. "tesseract_printed".
func TesseractMethod(profile string) string {
	return MethodTesseract + "_" + profile
}
