package model

// ChatStatus distinguishes an answered question from one with no matching data
type ChatStatus string

const (
	ChatStatusAnswered ChatStatus = "answered"
	ChatStatusNoMatch  ChatStatus = "no_match"
)

// NoInformationAnswer is returned without calling the language model when
// retrieval found nothing
const NoInformationAnswer = "No se encontró información en los registros disponibles para responder a esta pregunta."

// ChatResult is the answer to a question plus the sources it was grounded on
type ChatResult struct {
	Answer    string
	Citations []SourceID
	Status    ChatStatus
}
