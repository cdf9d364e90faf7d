package assistant

import (
	"fmt"
	"strings"

	"github.com/liteapi-travel/hscode-assistant/internal/catalog"
)

const systemPrompt = `คุณคือที่ปรึกษาด้านพิกัดอัตราศุลกากรของประเทศไทย มีหน้าที่วิเคราะห์สินค้าและจัดพิกัด HS CODE อย่างถูกต้อง
คิดวิเคราะห์ภายในได้ แต่ห้ามแสดงขั้นตอนการคิด ให้ตอบเฉพาะผลลัพธ์สุดท้ายเป็นภาษาไทยที่เข้าใจง่าย
ถ้าข้อมูลไม่พอให้บอกตรงๆ ว่าเป็นการประเมินเบื้องต้น`

const answerFormat = `ตอบตามรูปแบบนี้เท่านั้น:

🔷 ชื่อสินค้า

📋 รายละเอียด
– TH:
– EN:
– HS CODE:
– อากร:
– FE:
– ออกใบกำกับภาษีได้หรือไม่:
– ออกใบขนสินค้าได้หรือไม่:

📌 สรุป:
– รหัสสินค้า:
– หมายเหตุ:
– ข้อควรระวัง:`

// BuildPrompt writes the instruction for one search. With matches it asks
// for a summary of the first limit records and, when none fits, a better
// classification. Without matches it asks for a classification from general
// knowledge.
func BuildPrompt(keyword string, matches []catalog.TariffRecord, limit int) string {
	var b strings.Builder

	if len(matches) == 0 {
		fmt.Fprintf(&b, "ผู้ใช้ค้นหา: %q\n", keyword)
		b.WriteString("ไม่พบสินค้านี้ในฐานข้อมูลพิกัด\n\n")
		b.WriteString("ช่วยจัดพิกัดศุลกากร (HS CODE 8 หลัก) ของสินค้านี้จากความรู้ทั่วไป ")
		b.WriteString("พร้อมอากรขาเข้าโดยประมาณ และวิเคราะห์ว่าออกใบกำกับภาษีได้หรือไม่ และออกใบขนสินค้าได้หรือไม่\n\n")
		b.WriteString(answerFormat)
		return b.String()
	}

	shown := matches
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	fmt.Fprintf(&b, "ผู้ใช้ค้นหา: %q\n", keyword)
	fmt.Fprintf(&b, "รายการที่พบในฐานข้อมูลพิกัด %d รายการ", len(matches))
	if len(shown) < len(matches) {
		fmt.Fprintf(&b, " (แสดง %d รายการแรก)", len(shown))
	}
	b.WriteString(":\n")

	for i, r := range shown {
		fmt.Fprintf(&b, "%d. HS CODE: %s | EN: %s | TH: %s | อากร: %s | FE: %s",
			i+1, r.Code, r.NameEN, r.NameTH, r.Duty, r.FE)
		if r.Override {
			b.WriteString(" | ผู้ใช้ยืนยันว่าเป็นพิกัดที่ถูกต้องสำหรับคำค้นนี้")
		}
		b.WriteString("\n")
	}

	b.WriteString("\nสรุปว่าสินค้าที่ผู้ใช้ถามควรอยู่ในพิกัดใด ")
	b.WriteString("ถ้ารายการข้างต้นไม่ตรงกับสินค้า ให้เสนอพิกัดที่เหมาะสมกว่าพร้อมเหตุผลสั้นๆ ")
	b.WriteString("และวิเคราะห์ว่าออกใบกำกับภาษีได้หรือไม่ และออกใบขนสินค้าได้หรือไม่\n\n")
	b.WriteString(answerFormat)
	return b.String()
}
