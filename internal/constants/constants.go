package constants

const (
	// WordleApplicationID is the Discord application behind the Wordle activity
	// and its announcement messages.
	WordleApplicationID = "1211781489931452447"
	WordleActivityName  = "Wordle"

	EmbedTitle  = "🧩 Wordle Solved!"
	EmbedFooter = "Wordle Timer"
	EmbedColor  = 0x57F287
)
