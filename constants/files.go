package constants

// Artifact directory names under a run directory.
const (
	URLsDir       = "urls"
	PDFsDir       = "pdfs"
	TextDir       = "extracted_text"
	ProcessedDir  = "processed"
	IndividualDir = "individual_summaries" // under ProcessedDir
)

// Well-known file names.
const (
	StateFile    = "pipeline_state.json"
	ResultsFile  = "pipeline_results.json"
	URLsFile     = "urls_latest.json"
	MetadataFile = "processed_metadata.jsonl"
	CombinedFile = "training_data_combined.txt"
	CSVFile      = "summaries_for_csv.txt"
	XLSXFile     = "summaries.xlsx"
)
