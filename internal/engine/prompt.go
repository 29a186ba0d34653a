package engine

// summaryPrompt asks for a short plain-text digest of a speech transcript.
const summaryPrompt = `You are given the automatic transcript of a video. Summarize it for a reader who has not watched it.

Rules:
- 3 to 6 sentences of plain prose, no markdown, no bullet points.
- Keep names, numbers and conclusions exactly as spoken.
- If the transcript is empty or unintelligible, answer with a single sentence saying so.
- Answer in the language of the transcript.

Transcript:
%s`
