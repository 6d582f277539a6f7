package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/metrics"
)

const (
	defaultChatRetries     = 3
	defaultChatRetryDelay  = time.Second
	defaultHistoryLimit    = 40
	defaultScanHistorySize = 10

	chatFallbackReply = "I apologize, but I'm having trouble processing your request. Please try again later."
)

// ChatConfig holds configuration for the chat service
type ChatConfig struct {
	MaxRetries       int
	RetryDelay       time.Duration
	HistoryLimit     int
	ScanHistoryLimit int
	Timeout          time.Duration
}

// ChatRequest is one user message to a session
type ChatRequest struct {
	Message string `json:"message"`
	Mode    string `json:"mode"`
}

// ChatService answers follow-up questions within a session
type ChatService struct {
	sessions domain.SessionStore
	ai       *aiRunner
	config   ChatConfig
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(
	sessions domain.SessionStore,
	provider domain.AIProvider,
	config ChatConfig,
	logger *zap.Logger,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaultChatRetries
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = 0
	} else if config.RetryDelay == 0 {
		config.RetryDelay = defaultChatRetryDelay
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = defaultHistoryLimit
	}
	if config.ScanHistoryLimit <= 0 {
		config.ScanHistoryLimit = defaultScanHistorySize
	}
	return &ChatService{
		sessions: sessions,
		ai:       newAIRunner(provider, nil, AIConfig{Timeout: config.Timeout}, logger),
		config:   config,
		sleep:    sleepContext,
		logger:   logger,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CreateSession starts a new session with the default profile
func (s *ChatService) CreateSession(ctx context.Context) (*domain.ChatSession, error) {
	sess, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("chat session created", zap.String("session_id", sess.ID))
	return sess, nil
}

// GetSession returns a snapshot of a session
func (s *ChatService) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	return s.sessions.Get(ctx, id)
}

// DeleteSession forgets a session
func (s *ChatService) DeleteSession(ctx context.Context, id string) error {
	return s.sessions.Delete(ctx, id)
}

// UpdateProfile replaces the session profile; an empty language keeps English
func (s *ChatService) UpdateProfile(ctx context.Context, id string, profile domain.UserProfile) (*domain.ChatSession, error) {
	profile.DietaryPreferences = cleanList(profile.DietaryPreferences)
	profile.Allergies = cleanList(profile.Allergies)
	profile.HealthGoal = strings.TrimSpace(profile.HealthGoal)
	if profile.Language = strings.TrimSpace(profile.Language); profile.Language == "" {
		profile.Language = defaultMedicineLang
	}
	return s.sessions.Update(ctx, id, func(sess *domain.ChatSession) error {
		sess.Profile = profile
		return nil
	})
}

// ClearHistory drops the conversation but keeps profile, products and stats
func (s *ChatService) ClearHistory(ctx context.Context, id string) (*domain.ChatSession, error) {
	return s.sessions.Update(ctx, id, func(sess *domain.ChatSession) error {
		sess.History = []domain.ChatMessage{}
		return nil
	})
}

// Export returns the session for download
func (s *ChatService) Export(ctx context.Context, id string) (*domain.SessionExport, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.SessionExport{Session: sess, ExportedAt: s.ai.now().UTC()}, nil
}

// RecordProduct makes a looked-up product the subject of product-mode chat
func (s *ChatService) RecordProduct(ctx context.Context, id string, product domain.ProductRecord) error {
	_, err := s.sessions.Update(ctx, id, func(sess *domain.ChatSession) error {
		sess.LastProduct = &product
		sess.LastAnalysis = nil
		sess.Stats.ProductsScanned++
		return nil
	})
	return err
}

// RecordAnalysis keeps the latest product analysis as chat context
func (s *ChatService) RecordAnalysis(ctx context.Context, id string, analysis domain.AnalysisResult) error {
	_, err := s.sessions.Update(ctx, id, func(sess *domain.ChatSession) error {
		sess.LastAnalysis = &analysis
		sess.Stats.Analyses++
		return nil
	})
	return err
}

// RecordScan appends a medicine analysis to the scan history
func (s *ChatService) RecordScan(ctx context.Context, id string, scan domain.MedicineAnalysis) error {
	_, err := s.sessions.Update(ctx, id, func(sess *domain.ChatSession) error {
		sess.AppendScan(scan, s.config.ScanHistoryLimit)
		return nil
	})
	return err
}

// Send answers one message. Medicine mode answers emergencies and requests for
// prescriptions with fixed replies and no AI call. Provider failures are retried
// and end in an apology with Fallback set; they never surface as errors.
func (s *ChatService) Send(ctx context.Context, id string, req ChatRequest) (*domain.ChatReply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidRequest)
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	switch mode {
	case "":
		mode = domain.ChatNutrition
	case domain.ChatNutrition, domain.ChatMedicine, domain.ChatProduct:
	default:
		return nil, fmt.Errorf("%w: unknown chat mode %q", domain.ErrInvalidRequest, req.Mode)
	}

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	userMsg := domain.ChatMessage{
		Role:      domain.RoleUser,
		Content:   message,
		Mode:      mode,
		Timestamp: s.ai.now().UTC(),
	}

	reply, fallback := s.answer(ctx, sess, userMsg)

	assistantMsg := domain.ChatMessage{
		Role:      domain.RoleAssistant,
		Content:   reply,
		Mode:      mode,
		Timestamp: s.ai.now().UTC(),
	}

	if _, err := s.sessions.Update(ctx, id, func(sess *domain.ChatSession) error {
		sess.AppendMessage(userMsg, s.config.HistoryLimit)
		sess.AppendMessage(assistantMsg, s.config.HistoryLimit)
		return nil
	}); err != nil {
		return nil, err
	}

	return &domain.ChatReply{SessionID: id, Message: assistantMsg, Fallback: fallback}, nil
}

func (s *ChatService) answer(ctx context.Context, sess *domain.ChatSession, userMsg domain.ChatMessage) (string, bool) {
	var system string
	switch userMsg.Mode {
	case domain.ChatMedicine:
		if IsEmergency(userMsg.Content) {
			return emergencyReply, false
		}
		if IsPrescriptive(userMsg.Content) {
			return prescriptiveGuardText, false
		}
		system = medicineSystemPrompt(sess.Profile, lastScan(sess))
	case domain.ChatProduct:
		system = productSystemPrompt(sess.Profile, sess.LastProduct, sess.LastAnalysis)
	default:
		system = nutritionSystemPrompt(sess.Profile)
	}

	turns := append(contextWindow(sess.History), userMsg)

	text, ok := s.converseWithRetry(ctx, userMsg.Mode, system, turns)
	if !ok {
		return chatFallbackReply, true
	}
	if userMsg.Mode == domain.ChatMedicine {
		text = WithDisclaimer(text)
	}
	return text, false
}

func (s *ChatService) converseWithRetry(ctx context.Context, mode, system string, turns []domain.ChatMessage) (string, bool) {
	kind := "chat_" + mode
	for attempt := 1; attempt <= s.config.MaxRetries; attempt++ {
		text, err := s.ai.converse(ctx, kind, system, turns)
		if err == nil && text != "" {
			return text, true
		}

		if attempt == s.config.MaxRetries {
			s.logger.Warn("chat reply failed after retries",
				zap.String("mode", mode),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			break
		}
		metrics.AICalls.WithLabelValues(kind, metrics.OutcomeRetry).Inc()
		if err := s.sleep(ctx, s.config.RetryDelay); err != nil {
			break
		}
	}
	return "", false
}

func lastScan(sess *domain.ChatSession) *domain.MedicineAnalysis {
	if len(sess.ScanHistory) == 0 {
		return nil
	}
	last := sess.ScanHistory[len(sess.ScanHistory)-1]
	return &last
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
