package tenant

// Config store keys scoped per tenant. Values are opaque strings; media keys
// hold Telegram file ids, URL keys hold normalized links.
const (
	KeyWelcomeText   = "welcome_text"
	KeyWelcomePhoto  = "welcome_media_url"
	KeyPremiumText   = "premium_text"
	KeyPremiumPhoto  = "premium_photo_url"
	KeyUPIQR         = "upi_qr_url"
	KeyUPIMessage    = "upi_message"
	KeyCryptoQR      = "crypto_qr_url"
	KeyCryptoMessage = "crypto_message"
	KeyDemoURL       = "demo_button_url"
	KeyHowToURL      = "how_to_use_button_url"
	KeyConfirmedMsg  = "payment_confirmed_message"
	KeyExtraAdmins   = "extra_admins"
)
