package session

import "strings"

// Learner-facing messages. Wording is part of the product.
const (
	MsgCorrect        = "¡Correcto!"
	MsgTryAgain       = "Incorrecto. Inténtalo de nuevo."
	MsgAlmost         = "¡Casi! Revisa la ortografía e inténtalo de nuevo."
	MsgRevealPrefix   = "Incorrecto. La respuesta correcta es: "
	MsgBlankAnswer    = "Por favor, escribe una respuesta."
	MsgInvalidCurrent = "Error: El ejercicio actual no es válido. Por favor, contacte al administrador."
	MsgLoadFailed     = "Error al cargar los ejercicios. Por favor, intente de nuevo más tarde."
	MsgNoExercises    = "No hay ejercicios disponibles. Por favor, añade algunos ejercicios en la página de administración."
)

// FeedbackKind classifies the last message shown to the learner
type FeedbackKind string

const (
	FeedbackCorrect     FeedbackKind = "correct"
	FeedbackIncorrect   FeedbackKind = "incorrect"
	FeedbackAlmost      FeedbackKind = "almost"
	FeedbackRevealed    FeedbackKind = "revealed"
	FeedbackValidation  FeedbackKind = "validation"
	FeedbackUnavailable FeedbackKind = "unavailable"
	FeedbackError       FeedbackKind = "error"
	FeedbackEmpty       FeedbackKind = "empty"
)

// Feedback is the message attached to the latest transition
type Feedback struct {
	Kind    FeedbackKind `json:"kind"`
	Message string       `json:"message"`
}

func feedback(kind FeedbackKind, msg string) *Feedback {
	return &Feedback{Kind: kind, Message: msg}
}

// revealFeedback names the canonical answer. Keyword-only exercises list
// their keywords instead.
func revealFeedback(canonical string, keywords []string) *Feedback {
	if canonical == "" {
		canonical = strings.Join(keywords, ", ")
	}
	return feedback(FeedbackRevealed, MsgRevealPrefix+canonical)
}
