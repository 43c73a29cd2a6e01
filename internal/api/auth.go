package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// ticketSecretBytes is the size of the generated per-run secret.
const ticketSecretBytes = 32

// ticketIssuer mints and validates single-use WebSocket tickets.
//
// Tickets are short-lived HS256 tokens so the shell never puts a
// long-lived credential in a WebSocket URL. The jti claim makes each
// ticket single-use: validation records it and rejects replays.
type ticketIssuer struct {
	secret []byte

	mu   sync.Mutex
	used map[string]time.Time
}

// newTicketIssuer creates an issuer. An empty secret means a random
// per-run secret, which suits the normal deployment where the core and
// shell start together.
func newTicketIssuer(secret string) (*ticketIssuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, ticketSecretBytes)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating ticket secret: %w", err)
		}
	}
	return &ticketIssuer{
		secret: key,
		used:   make(map[string]time.Time),
	}, nil
}

// issue mints a new ticket.
func (t *ticketIssuer) issue() (string, error) {
	jti := make([]byte, 16)
	if _, err := rand.Read(jti); err != nil {
		return "", fmt.Errorf("generating ticket id: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"jti": hex.EncodeToString(jti),
		"iat": now.Unix(),
		"exp": now.Add(ticketTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// validate checks signature and expiry and consumes the ticket.
func (t *ticketIssuer) validate(ticket string) bool {
	parsed, err := jwt.Parse(ticket, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return false
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	jti, _ := claims["jti"].(string) //nolint:errcheck // empty jti rejected below
	if jti == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, replayed := t.used[jti]; replayed {
		return false
	}
	t.used[jti] = time.Now().Add(ticketTTL)
	return true
}

// sweep drops consumed jtis that can no longer validate anyway.
func (t *ticketIssuer) sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for jti, expiry := range t.used {
		if now.After(expiry) {
			delete(t.used, jti)
		}
	}
}

// handleWSTicket generates a single-use WebSocket authentication ticket.
// The shell uses this ticket to authenticate the WebSocket connection
// without exposing a long-lived credential in the URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, _ *http.Request) {
	ticket, err := s.tickets.issue()
	if err != nil {
		writeInternalError(w, "failed to generate ticket")
		return
	}

	s.tickets.sweep()

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}
