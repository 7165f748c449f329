package runner

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ratio_bot/internal/models"
)

// Тексты уведомлений (Telegram HTML).

func msgStartup(baseRisk, margin decimal.Decimal, maxPositions int, cooldown time.Duration) string {
	return fmt.Sprintf(
		"<b>🤖 Бот 2:1 запущен</b>\n"+
			"💰 Риск на сделку: <b>%s USDT</b>\n"+
			"📊 SL: <b>динамический (из сигнала)</b>\n"+
			"🎯 Соотношение: <b>2:1</b>\n"+
			"📈 Прогрессивная защита: <b>%s%%</b>\n"+
			"🔢 Макс. позиций: <b>%d</b>\n"+
			"⏳ Кулдаун: <b>%s</b>\n"+
			"✅ Готов к работе",
		baseRisk.String(), margin.String(), maxPositions, cooldown,
	)
}

func msgOpened(r models.OpenResult, stopPct decimal.Decimal) string {
	head, stopSign, lockSign := "🟢 LONG ОТКРЫТ (2:1)", "-", "+"
	if r.Side == models.SideShort {
		head, stopSign, lockSign = "🔴 SHORT ОТКРЫТ (2:1)", "+", "-"
	}
	return fmt.Sprintf(
		"<b>%s</b>\n"+
			"🔹 Символ: <b>%s</b>\n"+
			"💰 Объём: <b>%s USDT</b> (%s)\n"+
			"📍 Вход: <b>%s</b>\n"+
			"🛡️ Stop Loss: <b>%s</b> (%s%s%%)\n"+
			"🎯 Защита 1:1 при: <b>%s</b> (%s%s%%)\n"+
			"📊 Прогрессивная защита включена",
		head,
		r.Symbol,
		r.Notional.StringFixed(2), r.Qty.String(),
		r.Entry.String(),
		r.StopPrice.String(), stopSign, stopPct.StringFixed(2),
		r.LockAt.StringFixed(4), lockSign, stopPct.Mul(rewardRatio).StringFixed(2),
	)
}

func msgBreakevenLock(m models.StopMove) string {
	return fmt.Sprintf(
		"<b>🛡️ ЗАЩИТА 1:1 ВКЛЮЧЕНА</b>\n"+
			"🔹 Символ: <b>%s</b> (%s)\n"+
			"📍 Stop Loss перенесён на: <b>%s</b>\n"+
			"💰 Зафиксировано: <b>%s%%</b>\n"+
			"✅ 1:1 в кармане",
		m.Symbol, m.Side.Upper(), m.NewStop.String(), m.LockedPct.StringFixed(2),
	)
}

func msgTrailing(m models.StopMove, margin decimal.Decimal) string {
	return fmt.Sprintf(
		"<b>🚀 Прогрессивная защита обновлена</b>\n"+
			"🔹 %s (%s)\n"+
			"📍 Новый SL: <b>%s</b>\n"+
			"💹 Текущая цена: <b>%s</b>\n"+
			"📊 Зафиксировано: <b>+%s%%</b>\n"+
			"🛡️ Шаг защиты: %s%%",
		m.Symbol, m.Side.Upper(), m.NewStop.String(), m.Price.String(),
		m.LockedPct.StringFixed(2), margin.String(),
	)
}

func msgClosed(t models.ClosedTrade) string {
	if t.Win() {
		return fmt.Sprintf(
			"<b>✅ Сделка закрыта в плюс</b> 🎉💰\n"+
				"Символ: <b>%s</b>\n"+
				"Сторона: <b>%s</b>\n"+
				"PNL: <b>+%s USDT</b>",
			t.Symbol, t.Side, t.ClosedPnL.String(),
		)
	}
	return fmt.Sprintf(
		"<b>❌ Сделка закрыта в минус</b> 😢💸\n"+
			"Символ: <b>%s</b>\n"+
			"Сторона: <b>%s</b>\n"+
			"PNL: <b>%s USDT</b>",
		t.Symbol, t.Side, t.ClosedPnL.String(),
	)
}

func msgCapacity(symbol string, maxPositions int) string {
	return fmt.Sprintf("⚠️ Достигнут лимит открытых позиций (%d). %s не открываем.", maxPositions, symbol)
}

func msgDuplicate(symbol string) string {
	return fmt.Sprintf("⚠️ По %s уже есть открытая позиция. Вторую не открываем.", symbol)
}
