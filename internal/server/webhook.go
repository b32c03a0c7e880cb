package server

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/campushelp/faq-bot/internal/bus"
	"github.com/campushelp/faq-bot/internal/convlog"
	apperrors "github.com/campushelp/faq-bot/internal/pkg/errors"
	"github.com/campushelp/faq-bot/internal/pipeline"
	"github.com/campushelp/faq-bot/internal/schema"
)

const (
	emptyMessageReply = "Please send a valid question!"

	welcomeMessage = "👋 *Welcome to University FAQ Bot!*\n\n" +
		"I can help you with:\n" +
		"• Admission dates & deadlines\n" +
		"• Fee structure & scholarships\n" +
		"• Hostel & transport info\n" +
		"• Departments & programs\n" +
		"• And much more!\n\n" +
		"Ask me anything about the university!"

	helpMessage = "📚 *Example Questions:*\n\n" +
		"• When do admissions open?\n" +
		"• What scholarships are available?\n" +
		"• How do I apply for hostel?\n" +
		"• What is the fee structure?\n" +
		"• Contact information?\n\n" +
		"Type 'menu' to see all topics."

	apologyMessage = "Sorry, I encountered an error. 😔\n\n" +
		"Please try:\n" +
		"• Rephrasing your question\n" +
		"• Typing 'help' for examples\n" +
		"• Contacting: admission@university.edu"
)

// intentEmojis decorates answers per predicted intent.
var intentEmojis = map[schema.Intent]string{
	schema.IntentAdmissionDates: "📅",
	schema.IntentScholarship:    "💰",
	schema.IntentFeeStructure:   "💵",
	schema.IntentHostel:         "🏠",
	schema.IntentTransport:      "🚌",
	schema.IntentLibrary:        "📚",
	schema.IntentDepartments:    "🎓",
	schema.IntentContact:        "📞",
	schema.IntentEligibility:    "✅",
	schema.IntentEntryTest:      "📝",
}

// twiML is the Twilio messaging response envelope.
type twiML struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// handleHome serves the health check.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "University FAQ WhatsApp Bot",
		"version": s.cfg.Version,
	})
}

// handleWebhook answers inbound WhatsApp messages. Whatever happens
// inside, the caller always receives well-formed TwiML; raw errors
// never reach the end user.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		apperrors.WriteError(w, apperrors.InvalidRequestError("method not allowed"))
		return
	}

	if err := r.ParseForm(); err != nil {
		s.respondTwiML(w, apologyMessage)
		return
	}

	incoming := strings.TrimSpace(r.FormValue("Body"))
	from := r.FormValue("From")
	userID := strings.TrimPrefix(from, "whatsapp:")

	log := s.log.WithUser(userID)
	log.Info("Received message", "body", incoming)

	// Empty messages never reach the pipeline.
	if incoming == "" {
		s.respondTwiML(w, emptyMessageReply)
		return
	}

	switch strings.ToLower(incoming) {
	case "hi", "hello", "hey":
		s.respondTwiML(w, welcomeMessage)
		return
	case "help":
		s.respondTwiML(w, helpMessage)
		return
	case "menu":
		s.respondTwiML(w, s.menuMessage())
		return
	}

	result, err := s.bot.Query(r.Context(), incoming, true)
	if err != nil {
		log.WithError(err).Error("Query failed")
		s.respondTwiML(w, apologyMessage)
		return
	}

	responseText := formatWhatsAppResponse(result)

	s.recordInteraction(r, userID, incoming, result, responseText)

	log.Debug("Sending response", "preview", preview(responseText, 100))
	s.respondTwiML(w, responseText)
}

// recordInteraction publishes one interaction event; the subscribed
// conversation log performs the physical append.
func (s *Server) recordInteraction(r *http.Request, userID, question string, result pipeline.QueryResult, responseText string) {
	entry := convlog.Entry{
		Timestamp:  time.Now().UTC(),
		UserID:     userID,
		Question:   question,
		Intent:     string(result.Response.Intent),
		Confidence: 1.0,
		Response:   responseText,
	}

	event := bus.NewEvent(bus.TopicInteraction, "webhook", entry)
	// The append must not die with the request context.
	if err := s.bus.Publish(context.WithoutCancel(r.Context()), bus.TopicInteraction, event); err != nil {
		s.log.WithError(err).Error("Failed to publish interaction")
	}
}

// menuMessage lists the corpus topics in first-seen order.
func (s *Server) menuMessage() string {
	var b strings.Builder
	b.WriteString("*📋 Available Topics:*\n\n")
	for i, intent := range s.bot.Intents() {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.ReplaceAll(intent, "_", " "))
	}
	b.WriteString("\nAsk me about any topic!")
	return b.String()
}

// formatWhatsAppResponse decorates a pipeline result for WhatsApp.
func formatWhatsAppResponse(result pipeline.QueryResult) string {
	intent := result.Response.Intent
	emoji, ok := intentEmojis[intent]
	if !ok {
		emoji = "ℹ️"
	}

	title := strings.ReplaceAll(string(intent), "_", " ")
	return fmt.Sprintf("%s *%s*\n\n%s\n\n_Type 'help' for more options_", emoji, title, result.Response.Answer)
}

// respondTwiML writes a TwiML message response.
func (s *Server) respondTwiML(w http.ResponseWriter, message string) {
	body, err := xml.Marshal(twiML{Message: message})
	if err != nil {
		s.log.WithError(err).Error("Failed to encode TwiML")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	w.Write(body)
}

// handleAnalytics folds the conversation log into usage statistics.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apperrors.WriteError(w, apperrors.InvalidRequestError("method not allowed"))
		return
	}

	entries, err := s.convlog.Entries(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to read conversation log")
		apperrors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, convlog.Fold(entries))
}

// sendMessageRequest is the admin relay payload.
type sendMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// handleSendMessage relays a proactive message through Twilio.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		apperrors.WriteError(w, apperrors.InvalidRequestError("method not allowed"))
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteError(w, apperrors.InvalidRequestError("invalid JSON body"))
		return
	}
	if req.To == "" || req.Message == "" {
		apperrors.WriteError(w, apperrors.InvalidRequestError("missing 'to' or 'message'"))
		return
	}

	if s.twilio == nil {
		apperrors.WriteError(w, apperrors.New(apperrors.CodeUnavailable, "outbound messaging is not configured"))
		return
	}

	sid, err := s.twilio.SendWhatsApp(r.Context(), req.To, req.Message)
	if err != nil {
		s.log.WithError(err).Error("Failed to send message", "to", req.To)
		apperrors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent", "sid": sid})
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// preview truncates a message for log output.
func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
