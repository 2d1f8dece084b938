package models

// Message is one entry in a conversation's append-only log. The cache mirror
// keys the sorted set by TimeStamp with Seq breaking same-millisecond ties, so
// two racing sends can never silently overwrite each other.
type Message struct {
	ConversationID  string `dynamodbav:"conversationId" json:"conversationId"`
	MessageID       string `dynamodbav:"messageId" json:"messageId"`
	SenderID        string `dynamodbav:"senderId" json:"senderId"`
	Text            string `dynamodbav:"text" json:"text"`
	TimeStamp       int64  `dynamodbav:"timeStamp" json:"timeStamp"`
	Seq             int64  `dynamodbav:"seq" json:"seq"`
	ContentURL      string `dynamodbav:"contentUrl,omitempty" json:"contentUrl,omitempty"`
	ContentType     string `dynamodbav:"contentType,omitempty" json:"contentType,omitempty"`
	ContentFileName string `dynamodbav:"contentFileName,omitempty" json:"contentFileName,omitempty"`
}

// Score is the sorted-set score for the cache mirror: millisecond timestamp
// plus a sub-millisecond fraction from the process-local sequence.
func (m *Message) Score() float64 {
	return float64(m.TimeStamp) + float64(m.Seq%1000)/1000.0
}

// MessagesTable is the DynamoDB table name for the durable message backstop
const MessagesTable = "Messages"
