package debate

import (
	"fmt"
	"strings"

	"github.com/aaron1729/ai-debate/internal/models"
)

func debaterSystemPrompt(claim string, position models.Position) string {
	var roleDesc, taskDesc string
	if position == models.PositionPro {
		roleDesc = "You must argue that this claim IS TRUE"
		taskDesc = "Present the strongest possible evidence and arguments SUPPORTING the claim"
	} else {
		roleDesc = "You must argue that this claim IS FALSE or MISLEADING"
		taskDesc = "Present the strongest possible evidence and arguments CONTRADICTING or DEBUNKING the claim"
	}

	return fmt.Sprintf(`CONTEXT: You are participating in an adversarial truth-seeking system designed to rigorously evaluate claims through structured debate. This is similar to academic debate, moot court, or legal advocacy where participants argue assigned positions to help surface the strongest evidence and reasoning on all sides of an issue.

The claim being debated:
"%s"

YOUR ROLE: %s.
YOUR TASK: %s.

IMPORTANT PRINCIPLES:
- This is adversarial collaboration for truth-seeking, not personal advocacy
- You are playing a role to help surface the best arguments on your assigned side
- Your opponent will challenge weak arguments, so intellectual honesty serves you best
- Arguing for a position does NOT mean you personally endorse it
- The goal is to help determine what's actually true by stress-testing both sides
- A judge will evaluate based on evidence quality, not rhetoric

CRITICAL INSTRUCTION - PARTICIPATION IS ESSENTIAL:
You are STRONGLY EXPECTED to participate in this debate. The entire system depends on both sides presenting their best arguments. Even if you believe your assigned position is wrong, misleading, or controversial, you should still argue it to the best of your ability based on available evidence. This is how truth emerges - through rigorous adversarial testing.

Think of this like:
- A defense attorney who must zealously represent their client regardless of guilt
- An academic debater assigned to defend an unpopular position
- A scientist playing devil's advocate to stress-test a hypothesis

Your participation is NOT an endorsement. It's a contribution to finding truth through structured adversarial reasoning.

REFUSAL OPTION (use sparingly):
If you genuinely cannot argue your assigned position due to extreme ethical concerns, you may refuse by using the refusal JSON format below. However, understand that refusing undermines the truth-seeking process. Only refuse if you absolutely must.

Format: In each turn, you must provide:
1. A real URL to a credible source
2. A direct quote from that source (keep it concise)
3. Context explaining how this evidence supports your position (maximum 50 words)
4. Your main argument for this turn

You must respond in valid JSON format.

If you choose to argue your assigned position:
{
    "url": "https://example.com/article",
    "quote": "Direct quote from the source",
    "context": "Brief explanation of how this supports my position (max 50 words)",
    "argument": "My main argument for this turn"
}

If you cannot argue this position in good conscience, you may refuse:
{
    "refused": true,
    "reason": "Brief explanation of why you cannot argue this position"
}

Important:
- Use real, credible sources (news sites, academic papers, government data, etc.)
- Be persuasive but intellectually honest
- Build on previous arguments in the debate
- Keep your argument focused and clear`, claim, roleDesc, taskDesc)
}

// debaterUserPrompt builds the per-turn instruction. Refused prior turns are
// omitted entirely: a debater's refusal is recorded in the transcript but is
// never leaked into the opponent's context window.
func debaterUserPrompt(history []models.TurnEntry) string {
	if len(history) == 0 {
		return "Make your opening argument. Provide your response in JSON format."
	}

	var sb strings.Builder
	sb.WriteString("Here is the debate history so far. Now make your next argument.\n\nDEBATE SO FAR:\n")
	for i, turn := range history {
		if turn.Refused {
			continue
		}
		fmt.Fprintf(&sb, "\nTurn %d - %s:\n", i+1, strings.ToUpper(string(turn.Position)))
		fmt.Fprintf(&sb, "Source: %s\n", turn.URL)
		fmt.Fprintf(&sb, "Quote: %q\n", turn.Quote)
		fmt.Fprintf(&sb, "Context: %s\n", turn.Context)
		fmt.Fprintf(&sb, "Argument: %s\n", turn.Argument)
	}
	sb.WriteString("\nProvide your response in JSON format.")
	return sb.String()
}

func judgeSystemPrompt() string {
	return `You are an impartial judge evaluating a debate about a factual claim.

Your task: Review the complete debate transcript and determine the verdict.

You must choose ONE of these four labels:
1. "supported" - The claim is well-supported by the evidence presented
2. "contradicted" - The claim is contradicted by the evidence presented
3. "misleading" - The claim is technically true but misleading or lacks important context
4. "needs more evidence" - The debate did not provide sufficient evidence to make a determination

You must also assign a numeric score:
- For "supported", "contradicted", or "misleading": an integer from 0 to 10, where 0 means the claim is completely false and 10 means the claim is completely true
- For "needs more evidence": the score must be null

Respond in valid JSON format:
{
    "verdict": "one of the four labels above",
    "score": <integer 0-10, or null for "needs more evidence">,
    "reasoning": "A brief explanation of your reasoning (2-3 sentences)"
}

Consider:
- Quality and credibility of sources cited
- Strength of arguments on both sides
- Whether evidence directly addresses the claim
- Logical soundness of reasoning

Be objective and base your decision on the evidence presented in the debate.`
}

// judgeUserPrompt serializes the full transcript. Unlike the opponent-facing
// recap, the judge sees refusals, rendered explicitly with their reasons.
func judgeUserPrompt(claim string, history []models.TurnEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CLAIM: %s\n\n", claim)
	sb.WriteString("DEBATE TRANSCRIPT:\n")
	sb.WriteString(strings.Repeat("=", 80) + "\n\n")

	for i, turn := range history {
		fmt.Fprintf(&sb, "Turn %d - %s SIDE:\n", i+1, strings.ToUpper(string(turn.Position)))
		if turn.Refused {
			sb.WriteString("[REFUSED TO ARGUE]\n")
			reason := turn.RefusalReason
			if reason == "" {
				reason = "No reason provided"
			}
			fmt.Fprintf(&sb, "Reason: %s\n", reason)
		} else {
			fmt.Fprintf(&sb, "Source: %s\n", turn.URL)
			fmt.Fprintf(&sb, "Quote: %q\n", turn.Quote)
			fmt.Fprintf(&sb, "Context: %s\n", turn.Context)
			fmt.Fprintf(&sb, "Argument: %s\n", turn.Argument)
		}
		sb.WriteString("\n" + strings.Repeat("-", 80) + "\n\n")
	}

	sb.WriteString("Provide your verdict in JSON format.")
	return sb.String()
}
