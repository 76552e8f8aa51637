package message

// Kind は、メッセージの種別を表します。
type Kind string

const (
	KindMessage    Kind = "message"
	KindSystem     Kind = "system"
	KindQuestion   Kind = "question"
	KindResponse   Kind = "response"
	KindConclusion Kind = "conclusion"
)
