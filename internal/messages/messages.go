package messages

import "math/rand/v2"

// Greetings are shown when the control starts listening.
var Greetings = []string{
	"¿Dime?",
	"Te escucho",
	"¿Qué necesitas?",
	"Cuéntame",
	"Soy toda oídos",
	"A tus órdenes",
	"Dime lo que necesitas",
	"Habla con confianza",
	"Estoy atenta",
}

// Acknowledgments are shown after a transcription lands on the clipboard.
var Acknowledgments = []string{
	"Entendido",
	"Ok, lo tengo",
	"Claro que sí",
	"Por supuesto",
	"Recibido",
	"Comprendido",
	"Anotado",
}

const (
	NoSpeech       = "Lo siento, no te he entendido. ¿Puedes repetirlo?"
	DeviceFailure  = "No encuentro el micrófono. Revisa el dispositivo de audio."
	NetworkFailure = "Lo siento, tengo un problema de conexión. Inténtalo de nuevo."
	ServiceFailure = "El servicio de reconocimiento no ha respondido bien. Inténtalo de nuevo."
	TimeoutFailure = "He tardado demasiado. Inténtalo de nuevo."
)

// Random picks one entry from list. Returns "" for an empty list.
func Random(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[rand.IntN(len(list))]
}

func Greeting() string       { return Random(Greetings) }
func Acknowledgment() string { return Random(Acknowledgments) }
