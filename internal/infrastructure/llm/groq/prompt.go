package groq

const structureSystemPrompt = "You are a JSON-only API. Respond strictly in valid JSON."

const structurePrompt = `You are a highly advanced Data Extraction AI specializing in complex Invoices and Receipts.
Extract the following information from the provided OCR text and return it STRICTLY as a valid JSON object.
Do NOT include any markdown formatting. Return pure JSON only.

CRITICAL INSTRUCTIONS FOR RECEIPT AND INVOICE STRUCTURE:
1. The OCR engine often reads tables vertically (column by column) instead of horizontally (row by row).
2. You may see a list of ALL item IDs, then ALL descriptions, then ALL prices, then ALL quantities, then ALL totals.
3. Re-associate these lists by their sequence index: the 1st description belongs with the 1st price, quantity and total.
4. Quantities ("qty") are usually small numbers. A strangely large quantity (1884, 9347) is almost certainly an item code, NOT a quantity.
5. Ensure "grand_total" is the final amount due. If missing from the document, CALCULATE it by summing line totals. Do NOT hallucinate numbers.

Required fields in the JSON response:
- "vendor_name" (string or null)
- "invoice_number" (string or null)
- "invoice_date" (string or null)
- "subtotal" (number or null)
- "tax" (number or null)
- "grand_total" (number or null)
- "line_items": array of objects with "description" (string), "qty" (number), "unit_price" (number), "line_total" (number)

If a field is completely missing from the text, use null (or an empty array for line_items). Do not guess.

Invoice Text:
---------------
`

const auditSystemPrompt = `You are an expert autonomous Accounting Auditor AI.
You are given the raw OCR text of an invoice and the structured JSON data extracted from it.
Your job is to determine whether the invoice is legitimate, fraudulent, or contains critical errors.

Compare the raw text and the extracted data carefully. Are the totals correct? Is the vendor legitimate? Is there evidence of tampering or hallucination?

Return ONLY a valid JSON object with this schema:
{
  "decision": "APPROVED" | "REJECTED" | "UNCERTAIN",
  "reason": "A detailed explanation of why you made this decision."
}

If you are absolutely certain the invoice is legitimate, return APPROVED.
If you are absolutely certain it is fraudulent, a duplicate, or has critical data mismatches, return REJECTED.
If you are unsure or the data is a confusing mess, return UNCERTAIN.
Do NOT output anything other than JSON.`

const maxPromptText = 12000

func buildStructurePrompt(text string) string {
	if len(text) > maxPromptText {
		text = text[:maxPromptText]
	}
	return structurePrompt + text + "\n---------------"
}
