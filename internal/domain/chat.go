package domain

import "time"

// Chat roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chat modes select the system prompt and guards applied to a message
const (
	ChatNutrition = "nutrition"
	ChatMedicine  = "medicine"
	ChatProduct   = "product"
)

// ChatMessage is one turn of a conversation
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Mode      string    `json:"mode,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UserProfile holds the preferences that shape chat answers
type UserProfile struct {
	DietaryPreferences []string        `json:"dietary_preferences"`
	Allergies          []string        `json:"allergies"`
	HealthGoal         string          `json:"health_goal"`
	Language           string          `json:"language"`
	Medicine           MedicineProfile `json:"medicine"`
}

// SessionStats counts the activity of a session
type SessionStats struct {
	Messages        int `json:"messages"`
	ProductsScanned int `json:"products_scanned"`
	MedicineScans   int `json:"medicine_scans"`
	Analyses        int `json:"analyses"`
}

// ChatSession is the per-user conversational context
type ChatSession struct {
	ID           string             `json:"id"`
	Profile      UserProfile        `json:"profile"`
	History      []ChatMessage      `json:"history"`
	LastProduct  *ProductRecord     `json:"last_product,omitempty"`
	LastAnalysis *AnalysisResult    `json:"last_analysis,omitempty"`
	ScanHistory  []MedicineAnalysis `json:"scan_history"`
	Stats        SessionStats       `json:"stats"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// NewChatSession returns a session with its defined initial value
func NewChatSession(id string, now time.Time) *ChatSession {
	return &ChatSession{
		ID: id,
		Profile: UserProfile{
			DietaryPreferences: []string{},
			Allergies:          []string{},
			Language:           "English",
		},
		History:     []ChatMessage{},
		ScanHistory: []MedicineAnalysis{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy so callers never share slices with the store
func (s *ChatSession) Clone() *ChatSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Profile.DietaryPreferences = append([]string{}, s.Profile.DietaryPreferences...)
	c.Profile.Allergies = append([]string{}, s.Profile.Allergies...)
	c.Profile.Medicine.Conditions = append([]string(nil), s.Profile.Medicine.Conditions...)
	c.Profile.Medicine.Allergies = append([]string(nil), s.Profile.Medicine.Allergies...)
	c.Profile.Medicine.CurrentMedications = append([]string(nil), s.Profile.Medicine.CurrentMedications...)
	c.History = append([]ChatMessage{}, s.History...)
	c.ScanHistory = append([]MedicineAnalysis{}, s.ScanHistory...)
	if s.LastProduct != nil {
		p := *s.LastProduct
		c.LastProduct = &p
	}
	if s.LastAnalysis != nil {
		a := *s.LastAnalysis
		c.LastAnalysis = &a
	}
	return &c
}

// AppendMessage adds a message and trims history to the newest limit entries
func (s *ChatSession) AppendMessage(msg ChatMessage, limit int) {
	s.History = append(s.History, msg)
	if limit > 0 && len(s.History) > limit {
		s.History = append([]ChatMessage{}, s.History[len(s.History)-limit:]...)
	}
	s.Stats.Messages++
	s.UpdatedAt = msg.Timestamp
}

// AppendScan adds a medicine scan and trims scan history to the newest limit entries
func (s *ChatSession) AppendScan(scan MedicineAnalysis, limit int) {
	s.ScanHistory = append(s.ScanHistory, scan)
	if limit > 0 && len(s.ScanHistory) > limit {
		s.ScanHistory = append([]MedicineAnalysis{}, s.ScanHistory[len(s.ScanHistory)-limit:]...)
	}
	s.Stats.MedicineScans++
}

// ChatReply is the answer to one chat message
type ChatReply struct {
	SessionID string      `json:"session_id"`
	Message   ChatMessage `json:"message"`
	Fallback  bool        `json:"fallback"`
}

// SessionExport is the downloadable view of a session
type SessionExport struct {
	Session    *ChatSession `json:"session"`
	ExportedAt time.Time    `json:"exported_at"`
}
