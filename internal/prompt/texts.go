package prompt

const (
	textUnavailable    = "❌ Image generation is not available. Please configure GEMINI_API_KEY in your environment variables."
	textInvalidPrompt  = "❌ Please provide a valid prompt description."
	textWorking        = "⏳ Generating your image... This may take a few moments."
	textNoImage        = "❌ Failed to generate image. Please try again with a different prompt."
	textFailed         = "❌ An error occurred while generating the image. Please try again later."
	textCancelled      = "✅ Image generation cancelled."
	textNothingPending = "ℹ️ You don't have any pending image generation requests."

	captionHeader = "🎨 *Generated Image*\n\n_Prompt:_ "
	// Telegram rejects photo captions longer than this many characters.
	captionLimit = 1024
)

const initiateTemplate = "🎨 *Image Generation*\n\n" +
	"Please send me a description of the image you'd like me to generate.\n\n" +
	"Example: A futuristic banana with neon lights in a cyberpunk city\n\n" +
	"*Current Settings:*\n" +
	"├ Aspect Ratio: `%s`\n" +
	"├ Image Size: `%s`\n" +
	"└ Model: `%s`\n\n" +
	"💡 Change settings with /image\\_settings\n" +
	"Type /cancel to cancel."
