package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/labnote/internal/model"
)

// プロンプトはモデルの応答品質に直結するため英語で固定する。
// 変更時は必ず実レポートでの回答品質を確認すること。

func buildAnalyzeTextPrompt(rawText string, structured *model.StructuredData) string {
	var sb strings.Builder

	sb.WriteString(`You are a clinical assistant helping patients understand lab test results. You have access to extracted lab report data.

RAW LAB REPORT TEXT:
`)
	sb.WriteString(rawText)
	sb.WriteString("\n")

	if structured != nil {
		sb.WriteString("\n\nEXTRACTED STRUCTURED DATA:\n")
		fmt.Fprintf(&sb, "- Test Type: %s\n", orNotSpecified(structured.TestType))
		fmt.Fprintf(&sb, "- Date: %s\n", orNotSpecified(structured.Date))
		fmt.Fprintf(&sb, "- Patient: %s\n", orNotSpecified(structured.PatientName))
		sb.WriteString("\nTEST RESULTS:\n")
		sb.WriteString(formatTestResults(structured.TestResults))
		sb.WriteString("\n")
	}

	sb.WriteString(`

TASKS:
1. Summarize the overall picture in simple, reassuring language.
2. Call out any abnormal values (high/low/critical) and what they might mean in broad terms.
3. For each abnormal value, explain what it typically indicates (in general terms, not specific diagnoses).
4. Suggest 3-5 concrete follow-up questions the patient could ask their clinician.
5. Use short paragraphs and bullet points for clarity.
6. Do NOT give treatment plans, prescriptions, or specific medical diagnoses.
7. Always remind the patient to consult with their healthcare provider for medical advice.

IMPORTANT FORMATTING:
- Do NOT use markdown formatting (no asterisks, hashtags, or backticks)
- Use plain text only
- Use line breaks and simple dashes for bullet points
- Keep formatting clean and readable`)

	return sb.String()
}

func buildAnalyzePDFPrompt(fileName string) string {
	if fileName == "" {
		fileName = "Lab report PDF"
	}

	return fmt.Sprintf(`You are a clinical assistant helping patients understand lab test results in PDF form.

FILE NAME: %s

TASKS:
1. Carefully read the entire lab report PDF, including any tables and reference ranges.
2. Summarize the overall picture in simple, reassuring language.
3. Call out any clearly abnormal values and what they might mean in broad terms (no diagnoses).
4. Group results into sections (for example: blood counts, kidney function, liver function, cholesterol, glucose, etc.) when possible.
5. Suggest 3-5 specific follow-up questions the patient could ask their clinician.
6. Use short paragraphs and bullet points. Do NOT give treatment plans, prescriptions, or specific medical diagnoses.
7. Always include a short disclaimer reminding the patient to discuss results with their clinician.

IMPORTANT FORMATTING:
- Do NOT use markdown formatting (no asterisks, hashtags, or backticks)
- Use plain text only
- Use line breaks and simple dashes for bullet points
- Keep formatting clean and readable`, fileName)
}

func buildChatPrompt(rawText, priorAnalysis, question string) string {
	var sb strings.Builder

	truncated := false
	if len(rawText) > chatRawTextLimit {
		// マルチバイト文字の途中で切らないよう、ルーン境界まで戻す
		cut := chatRawTextLimit
		for cut > 0 && !utf8.RuneStart(rawText[cut]) {
			cut--
		}
		rawText = rawText[:cut]
		truncated = true
	}

	sb.WriteString(`You are a clinical assistant helping a patient understand their lab test results. You have access to the COMPLETE RAW TEXT from their lab report PDF, and optionally a summary analysis.

=== RAW LAB REPORT TEXT (COMPLETE) ===
`)
	sb.WriteString(rawText)
	if truncated {
		sb.WriteString(truncationMarker)
	}
	sb.WriteString("\n=== END OF RAW TEXT ===")

	if strings.TrimSpace(priorAnalysis) != "" {
		sb.WriteString("\n\n=== PREVIOUS AI ANALYSIS SUMMARY ===\n")
		sb.WriteString(priorAnalysis)
		sb.WriteString("\n=== END OF ANALYSIS ===")
	}

	sb.WriteString("\n\nThe patient is now asking a follow-up question about their lab results.\n\nPATIENT'S QUESTION: ")
	sb.WriteString(question)
	sb.WriteString(`

CRITICAL INSTRUCTIONS:
1. You have the COMPLETE RAW TEXT from the lab report above. Use this as your primary source of information.
2. If an analysis summary is provided, you can reference it, but always verify details against the raw text.
3. DO NOT say you don't have access to the lab report data - you have the complete raw text above.
4. Reference specific values, test names, reference ranges, and findings from the raw text when answering.
5. Use simple, patient-friendly language.
6. If the question asks about something not in the report, acknowledge that and suggest they ask their healthcare provider.
7. Do NOT provide diagnoses or treatment plans.
8. Always remind them to consult their healthcare provider for medical advice.

FORMATTING REQUIREMENTS:
- Do NOT use markdown formatting (no asterisks, hashtags, or backticks)
- Use plain text only
- Use line breaks and simple dashes for lists
- Keep formatting clean and readable

Answer the patient's question now, using the raw lab report text above as your source of information:`)

	return sb.String()
}

func formatTestResults(results []model.TestResult) string {
	if len(results) == 0 {
		return "No structured test results found"
	}

	lines := make([]string, 0, len(results))
	for _, r := range results {
		unit := r.Unit
		refRange := r.ReferenceRange
		if refRange == "" {
			refRange = "N/A"
		}
		status := string(r.Status)
		if status == "" {
			status = "unknown"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s %s (Reference: %s) [Status: %s]", r.Name, r.Value, unit, refRange, status))
	}
	return strings.Join(lines, "\n")
}

func orNotSpecified(s string) string {
	if s == "" {
		return "Not specified"
	}
	return s
}
