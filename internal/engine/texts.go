package engine

// Buyer-facing defaults, used until the admin customizes them.
const (
	defaultWelcomeText   = "👋 Welcome! Tap the button below to get premium access."
	defaultPremiumText   = "💎 <b>Premium access</b>\n\nChoose a payment method:"
	defaultUPIMessage    = "📲 Pay via UPI, then tap the button below."
	defaultCryptoMessage = "🪙 Pay via crypto, then tap the button below."
)

const (
	textCancelled          = "❎ Cancelled."
	textNotAuthorized      = "⛔ You are not authorized to do this."
	textSendScreenshot     = "📸 Please send a screenshot of your payment."
	textScreenshotRequired = "❌ That is not a screenshot. Please send a photo of your payment."
	textScreenshotReceived = "🕒 Screenshot received. You will be notified once it is verified."
	textSubmitFailed       = "⚠️ Something went wrong. Please try again later."
)

const adminMenuText = "🛠 <b>Admin panel</b>\n\nChoose a section:"
