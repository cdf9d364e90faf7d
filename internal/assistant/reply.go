package assistant

import (
	"fmt"
	"strings"

	"github.com/liteapi-travel/hscode-assistant/internal/catalog"
)

const (
	// FallbackText replaces the AI block when the advisor produced nothing.
	FallbackText = "🤖 ขออภัย ระบบวิเคราะห์ AI ไม่สามารถให้คำแนะนำได้ในขณะนี้ กรุณาลองใหม่อีกครั้ง"

	// HintText answers a mention that carries no keyword.
	HintText = "พิมพ์ชื่อสินค้าหรือเลขพิกัดที่ต้องการค้นหา เช่น \"กาแฟคั่ว\" หรือ \"0901\""

	notFoundText = "📦 ไม่พบข้อมูลที่ค้นหาในฐานข้อมูล"
)

// ConfirmationText acknowledges a stored override.
func ConfirmationText(keyword, code string) string {
	return fmt.Sprintf("✅ บันทึกการแก้ไขแล้ว\nคำค้น: %s\nHS CODE: %s\nครั้งต่อไปที่ค้นหาคำนี้ จะแสดงพิกัดนี้เป็นอันดับแรก", keyword, code)
}

// CatalogBlock renders the deterministic part of a reply: up to limit
// matches in result order.
func CatalogBlock(matches []catalog.TariffRecord, limit int) string {
	if len(matches) == 0 {
		return notFoundText
	}

	shown := matches
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	var b strings.Builder
	b.WriteString("📦 ข้อมูลจากฐานข้อมูล")
	for i, r := range shown {
		b.WriteString("\n")
		if len(shown) > 1 {
			fmt.Fprintf(&b, "\n%d) ", i+1)
		}
		code := r.Code
		if r.Override {
			code += " (แก้ไขโดยผู้ใช้)"
		}
		fmt.Fprintf(&b, "HS CODE: %s\nEN: %s\nTH: %s\nอากร: %s\nFE: %s", code, r.NameEN, r.NameTH, r.Duty, r.FE)
	}
	if rest := len(matches) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "\n\n…และอีก %d รายการ", rest)
	}
	return b.String()
}

// ComposeReply joins the catalog block and the AI block.
func ComposeReply(catalogBlock, aiBlock string) string {
	return catalogBlock + "\n\n" + aiBlock
}
