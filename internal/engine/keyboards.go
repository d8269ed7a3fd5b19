package engine

import (
	"github.com/m3rciful/premiumbot/internal/action"
	"github.com/m3rciful/premiumbot/internal/payment"
	"github.com/m3rciful/premiumbot/internal/transport"
)

func welcomeKeyboard(demoURL, howtoURL string) *transport.Keyboard {
	kb := (&transport.Keyboard{}).Row(transport.Do("💎 Get Premium", action.GetPremium))
	var extra []transport.Button
	if demoURL != "" {
		extra = append(extra, transport.Link("🎬 Demo", demoURL))
	}
	if howtoURL != "" {
		extra = append(extra, transport.Link("📖 How to use", howtoURL))
	}
	if len(extra) > 0 {
		kb.Row(extra...)
	}
	return kb
}

func premiumKeyboard() *transport.Keyboard {
	return (&transport.Keyboard{}).
		Row(
			transport.Do("📲 UPI", action.PayUPI),
			transport.Do("🪙 Crypto", action.PayCrypto),
		).
		Row(transport.Do("⬅️ Back", action.BackHome))
}

func payKeyboard(typ payment.Type) *transport.Keyboard {
	paid := action.PaidUPI
	if typ == payment.TypeCrypto {
		paid = action.PaidCrypto
	}
	return (&transport.Keyboard{}).
		Row(transport.Do("✅ I have paid", paid)).
		Row(transport.Do("⬅️ Back", action.GetPremium))
}

func adminMenuKeyboard() *transport.Keyboard {
	return (&transport.Keyboard{}).
		Row(
			transport.Do("📝 Welcome", action.MenuWelcome),
			transport.Do("💎 Premium", action.MenuPremium),
		).
		Row(
			transport.Do("📲 UPI", action.MenuUPI),
			transport.Do("🪙 Crypto", action.MenuCrypto),
		).
		Row(
			transport.Do("🔗 Buttons", action.MenuButtons),
			transport.Do("💬 Confirm msg", action.MenuConfirmedMsg),
		).
		Row(
			transport.Do("🧾 Payments", action.MenuPayments),
			transport.Do("👥 Users", action.MenuUsers),
		).
		Row(
			transport.Do("📊 Stats", action.MenuStats),
			transport.Do("📣 Broadcast", action.MenuBroadcast),
		).
		Row(transport.Do("🔐 Admins", action.MenuAdmins)).
		Row(transport.Do("❌ Close", action.MenuClose))
}

func backKeyboard() *transport.Keyboard {
	return (&transport.Keyboard{}).Row(transport.Do("⬅️ Back", action.MenuMain))
}

func welcomeSectionKeyboard() *transport.Keyboard {
	return (&transport.Keyboard{}).
		Row(
			transport.Do("✏️ Edit text", action.SetWelcomeText),
			transport.Do("🖼 Set photo", action.SetWelcomePhoto),
		).
		Row(transport.Do("🗑 Remove photo", action.DelWelcomePhoto)).
		Row(transport.Do("⬅️ Back", action.MenuMain))
}

func premiumSectionKeyboard() *transport.Keyboard {
	return (&transport.Keyboard{}).
		Row(
			transport.Do("✏️ Edit text", action.SetPremiumText),
			transport.Do("🖼 Set photo", action.SetPremiumPhoto),
		).
		Row(transport.Do("🗑 Remove photo", action.DelPremiumPhoto)).
		Row(transport.Do("⬅️ Back", action.MenuMain))
}

func upiSectionKeyboard() *transport.Keyboard {
	return (&transport.Keyboard{}).
		Row(
			transport.Do("🖼 Set QR", action.SetUPIQR),
			transport.Do("✏️ Edit message", action.SetUPIMsg),
		).
		Row(transport.Do("🗑 Remove QR", action.DelUPIQR)).
		Row(transport.Do("⬅️ Back", action.MenuMain))
}

func cryptoSectionKeyboard() *transport.Keyboard {
	return (&transport.Keyboard{}).
		Row(
			transport.Do("🖼 Set QR", action.SetCryptoQR),
			transport.Do("✏️ Edit message", action.SetCryptoMsg),
		).
		Row(transport.Do("🗑 Remove QR", action.DelCryptoQR)).
		Row(transport.Do("⬅️ Back", action.MenuMain))
}

func buttonsSectionKeyboard() *transport.Keyboard {
	return (&transport.Keyboard{}).
		Row(
			transport.Do("🎬 Set demo link", action.SetDemoURL),
			transport.Do("📖 Set how-to link", action.SetHowToURL),
		).
		Row(transport.Do("⬅️ Back", action.MenuMain))
}

func confirmedMsgSectionKeyboard() *transport.Keyboard {
	return (&transport.Keyboard{}).
		Row(transport.Do("✏️ Edit message", action.SetConfirmedMsg)).
		Row(transport.Do("⬅️ Back", action.MenuMain))
}

func paymentsSectionKeyboard(pending []payment.Request) *transport.Keyboard {
	kb := &transport.Keyboard{}
	for _, req := range pending {
		kb.Row(
			transport.DoArg("✅ #"+itoa(req.ID), action.Approve, req.ID),
			transport.DoArg("❌ #"+itoa(req.ID), action.Reject, req.ID),
		)
	}
	return kb.Row(transport.Do("⬅️ Back", action.MenuMain))
}

func adminsSectionKeyboard(extras []int64) *transport.Keyboard {
	kb := &transport.Keyboard{}
	for _, id := range extras {
		kb.Row(transport.DoArg("🗑 Remove "+itoa(id), action.RemoveAdmin, id))
	}
	return kb.
		Row(transport.Do("➕ Add admin", action.AddAdmin)).
		Row(transport.Do("⬅️ Back", action.MenuMain))
}
