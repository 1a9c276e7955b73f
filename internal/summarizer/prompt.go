package summarizer

import "fmt"

const promptInstruction = "Summarize the following text and format it to be sent as the HtmlBody parameter in an email API. " +
	"Don't add triple backticks to denote the block of text. " +
	"Simply the HTML without even HEAD or BODY tags."

func buildPrompt(text string) string {
	return fmt.Sprintf("%s\n%s\n\nSummary:", promptInstruction, text)
}
