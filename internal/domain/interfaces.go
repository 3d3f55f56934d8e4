package domain

// Document represents a single file loaded into the corpus.
// It only lives until its text has been chunked.
type Document struct {
	Path    string
	Content string
}

// Corpus holds chunk texts paired by position with the path they came from.
// Chunks[i] always originates from Sources[i].
type Corpus struct {
	Chunks  []string
	Sources []string
}

// Len returns the number of chunks in the corpus.
func (c Corpus) Len() int { return len(c.Chunks) }

// Append adds every chunk of one document, labelling each with source.
func (c *Corpus) Append(source string, chunks []string) {
	for _, ch := range chunks {
		c.Chunks = append(c.Chunks, ch)
		c.Sources = append(c.Sources, source)
	}
}

// RetrievalResult is one retrieved chunk with its origin and L2 distance to the query.
type RetrievalResult struct {
	Content  string  `json:"content"`
	Source   string  `json:"source"`
	Distance float64 `json:"distance"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
