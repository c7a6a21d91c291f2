package bot

const (
	textNeedStart          = "❌ Please run /start first to initialize your account."
	textProfileMissing     = "❌ Could not retrieve your profile. Please try /start first."
	textUpdateFailed       = "❌ Failed to update settings. Please try again."
	textSettingFailed      = "❌ Failed to update setting"
	textStatsFailed        = "❌ Could not load statistics. Please try again later."
	textUnknown            = "🤔 I didn't get that. Send /help to see what I can do."
	textUnexpectedDocument = "📎 I can't process files. Use /prompt to describe the image you want."

	textEchoUsage          = "💡 *Usage:* `/echo <your message>`\n\nExample: `/echo Hello World`"
	textNotificationsUsage = "💡 *Usage:* `/notifications <on|off>`\n\nExample: `/notifications off`"
	textNotificationsBad   = "❌ Invalid option. Use `on` or `off`."
	textNotificationsOn    = "🔔 Notifications have been *enabled*."
	textNotificationsOff   = "🔕 Notifications have been *disabled*."

	textAspectMenu = "📐 *Select Aspect Ratio*\n\nChoose your preferred aspect ratio for generated images:"
	textSizeMenu   = "📏 *Select Image Size*\n\n• 1K: Faster generation, smaller file size\n• 2K: Higher quality, larger file size"
	textModelMenu  = "🤖 *Select Model*\n\n• Gemini 2.5 Flash: Faster generation, good quality\n• Gemini 3 Pro: Slower but higher quality with better text rendering"
)

const startCommands = "📚 *Available Commands:*\n" +
	"/start - Show this welcome message\n" +
	"/help - Display all available commands\n" +
	"/me - View your profile information\n" +
	"/stats - View bot statistics\n" +
	"/settings - Manage your settings\n" +
	"/echo <text> - Echo back your message\n" +
	"/prompt - Generate images from text descriptions\n\n" +
	"💡 *Tip:* Use /help for more details on each command."

const helpFooter = "*Examples:*\n" +
	"`/prompt` - Start image generation (then send your description)\n" +
	"`/image_settings` - Configure default image generation settings\n" +
	"`/notifications off` - Mute notifications\n\n" +
	"💬 *Need Support?*\n" +
	"Contact the bot administrator for help."
