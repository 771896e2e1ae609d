package analysis

// Request 为提交给 AI 分析服务的请求体。
type Request struct {
	Utterances     []Utterance     `json:"utterances_ko"`
	ChallengeSpecs []ChallengeSpec `json:"challenge_specs"`
	Meta           Meta            `json:"meta"`
}

// Utterance 为一条发言，Timestamp 为毫秒偏移。
type Utterance struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// ChallengeSpec 描述进行中的挑战，只携带未完成的动作。
type ChallengeSpec struct {
	ChallengeID string       `json:"challenge_id"`
	Title       string       `json:"title"`
	Goal        string       `json:"goal"`
	Actions     []ActionSpec `json:"actions"`
}

// ActionSpec 为挑战下的动作。
type ActionSpec struct {
	ActionID string `json:"actionId"`
	Content  string `json:"content"`
}

// Meta 为儿童与场景信息。
type Meta struct {
	ChildName      string `json:"childName"`
	ChildGender    string `json:"childGender"`
	ChildBirthDate string `json:"childBirthDate,omitempty"`
	ContextTag     string `json:"contextTag,omitempty"`
}

// SubmitResponse 为 POST /analyze 的响应。
type SubmitResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}
