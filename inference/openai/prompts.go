package openai

import "fmt"

// buildSystemPrompt returns the extraction instructions shared by
// every chunk of a document.
func buildSystemPrompt() string {
	return `You are a procurement analyst extracting structured data from vendor documents.

Extract the following fields from the document text and respond with a single JSON object:
- "vendor_name": the vendor or supplier company name, or "" if not present
- "document_type": one of "quote", "proposal", "invoice", "contract", "specification" or "" if unclear
- "pricing": array of objects with "item", "quantity", "unit_price", "total_price" (all strings, keep original formatting)
- "products_or_services": array of product or service names mentioned
- "delivery_terms": delivery or shipping terms, or "" if not present
- "payment_terms": payment terms, or "" if not present
- "special_clauses": notable contractual clauses such as penalties, warranties or exclusivity, or "" if none
- "notes": any other relevant commercial details, or "" if none
- "confidence": number between 0 and 1 for how confident you are in the extraction

Only extract information actually present in the text. Never invent values. Respond with JSON only, no prose.`
}

// buildUserPrompt wraps the chunk text with its position in the
// document so the model knows it is seeing a fragment.
func buildUserPrompt(chunkIndex, totalChunks int, text string) string {
	if totalChunks <= 1 {
		return text
	}
	return fmt.Sprintf("This is part %d of %d of a larger document. Extract what this part contains.\n\n%s",
		chunkIndex+1, totalChunks, text)
}
