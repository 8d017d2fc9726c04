package report

const (
	ENV_BAD_DOCUMENTS_DIR = "BAD_DOCUMENTS_DIR"

	// defaults
	BAD_DOCUMENTS_DIR = "."
	BAD_VERTICES_FILE = "BadVertices.txt"
	BAD_EDGES_FILE    = "BadEdges.txt"

	RULE = "---------------------------------------------------------------------"
)
