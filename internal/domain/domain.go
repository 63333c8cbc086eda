package domain

// Chunk is a bounded group of sentences taken from one source document.
type Chunk struct {
	Text   string
	Source string
	Index  int
	Total  int
}

// Payload keys written alongside every stored chunk.
const (
	PayloadChunkText   = "chunk_text"
	PayloadSource      = "source"
	PayloadChunkIndex  = "chunk_index"
	PayloadTotalChunks = "total_chunks"
	PayloadModelName   = "model_name"
)

// Payload is the schema-less metadata stored with a point.
type Payload map[string]any

// String returns the string value stored under key, if any.
func (p Payload) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

// Payload builds the stored metadata for the chunk. model is omitted when empty.
func (c Chunk) Payload(model string) Payload {
	p := Payload{
		PayloadChunkText:   c.Text,
		PayloadSource:      c.Source,
		PayloadChunkIndex:  c.Index,
		PayloadTotalChunks: c.Total,
	}
	if model != "" {
		p[PayloadModelName] = model
	}
	return p
}

// StoredPoint is a vector with its id and payload inside a collection.
type StoredPoint struct {
	ID      PointID
	Vector  []float32
	Payload Payload
}

// SearchHit is a single nearest-neighbour result.
type SearchHit struct {
	ID      PointID
	Score   float64
	Payload Payload
}

// Role is the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
