package domain

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type TextFlag struct {
	Position  int      `json:"position"`
	Token     string   `json:"token"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Rationale string   `json:"rationale"`
}

type Objective struct {
	Name        string `json:"rubric_name"`
	Explanation string `json:"rubric_explanation"`
	Selected    bool   `json:"selected"`
}

type GeneratedAgentPrompt struct {
	Role           string   `json:"role"`
	Instruction    string   `json:"instruction"`
	Objectives     []string `json:"objectives"`
	GuardrailIntro string   `json:"guardrail"`
	Guidelines     []string `json:"guidelines"`
}

type CompletionReq struct {
	SystemPrompt string
	UserPrompt   string
	WantJSON     bool
	Temperature  float64
	Model        string
}

// Session identifies one browser install (or CLI profile) in the record store.
type Session struct {
	Id        string
	UserAgent string
}

type PromptLog struct {
	Id        string `json:"id,omitempty"`
	UserAgent string `json:"useragent"`
	IpAddress string `json:"ip_address"`
	SessionId string `json:"session_id"`
	Timestamp int64  `json:"timestamp"`
	Prompt    string `json:"prompt"`
	Response  string `json:"response"`
}

type ObjectivesLog struct {
	Id                      string   `json:"id,omitempty"`
	UserAgent               string   `json:"useragent"`
	IpAddress               string   `json:"ip_address"`
	SessionId               string   `json:"session_id"`
	Timestamp               int64    `json:"timestamp"`
	UserObjectives          []string `json:"user_objectives"`
	SelectedObjectives      []string `json:"selected_objectives"`
	GuardrailResponse       string   `json:"guardrail_response"`
	GeneratedPromptResponse string   `json:"generated_prompt_response"`
}
