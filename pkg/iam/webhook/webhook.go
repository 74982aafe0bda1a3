package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/clientela/clientela/pkg/errx"
)

// EventKind clasifica los eventos que envía el proveedor de identidad
type EventKind string

const (
	// EventUserCreated llega cuando el usuario completa el registro
	EventUserCreated EventKind = "user.created"

	// EventUserConfirmed llega cuando el usuario verifica su email.
	// Ambos aprovisionan; la idempotencia hace que el segundo sea un no-op.
	EventUserConfirmed EventKind = "user.confirmed"
)

// Event es el sobre que entrega el proveedor
type Event struct {
	Kind EventKind `json:"type"`
	Data EventData `json:"data"`
}

// EventData es el payload de los eventos de usuario
type EventData struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	InvitationCode string `json:"invitation_code,omitempty"`
}

// IsProvisioning indica si el evento debe materializar un perfil
func (k EventKind) IsProvisioning() bool {
	return k == EventUserCreated || k == EventUserConfirmed
}

// Gateway verifica y parsea eventos entrantes. La firma es HMAC-SHA256 del
// cuerpo crudo, en hex, y se compara en tiempo constante.
type Gateway struct {
	secret []byte
}

// NewGateway crea el gateway con el secreto compartido del proveedor
func NewGateway(secret string) *Gateway {
	return &Gateway{
		secret: []byte(secret),
	}
}

// Verify valida la firma contra el cuerpo crudo
func (g *Gateway) Verify(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, g.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// Parse decodifica el sobre. Se llama sólo después de Verify: un cuerpo
// sin firma válida jamás se parsea.
func (g *Gateway) Parse(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, ErrMalformedPayload().WithDetail("parse_error", err.Error())
	}
	return &event, nil
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("WEBHOOK")

var (
	CodeInvalidSignature = ErrRegistry.Register("INVALID_SIGNATURE", errx.TypeAuthorization, http.StatusUnauthorized, "Webhook signature verification failed")
	CodeMalformedPayload = ErrRegistry.Register("MALFORMED_PAYLOAD", errx.TypeValidation, http.StatusBadRequest, "Webhook payload could not be parsed")
)

func ErrInvalidSignature() *errx.Error { return ErrRegistry.New(CodeInvalidSignature) }
func ErrMalformedPayload() *errx.Error { return ErrRegistry.New(CodeMalformedPayload) }
