package analysis

const activitySystemPrompt = `You are an experienced engineering manager reviewing one team member's sprint.
Write a short, concrete analysis of their activity: what went well, what stands out, what looks risky.
Respond with a JSON object of the form {"text": "..."} and nothing else.`

const activityUserPromptTemplate = `Sprint tasks:
%s

Sprint metrics:
- story points closed: %d
- tasks in sprint: %d
- deadlines missed: %d
- average task completion time: %.1f hours

Analyze this employee's sprint activity.`

const recommendationsSystemPrompt = `You are an experienced engineering manager coaching a team member after a sprint.
Suggest at most three specific, actionable improvements ordered by impact.
Respond with a JSON object of the form {"recommendations": [{"title": "...", "text": "..."}]} and nothing else.`

const recommendationsUserPromptTemplate = `Sprint metrics:
- story points closed: %d
- tasks in sprint: %d
- deadlines missed: %d
- average task completion time: %.1f hours

Give recommendations for the next sprint.`

const teamRatingSystemPrompt = `You are an experienced engineering manager rating every team member's sprint performance.
Rate each employee from 1 (poor) to 5 (excellent) and explain each rating in one or two sentences,
taking the previous sprint into account where available.
Respond with a JSON object of the form
{"ratings": [{"employee_id": 1, "rating": 3, "rating_explanation": "..."}]}
covering every listed employee, and nothing else.`

const teamRatingUserPromptTemplate = `Current sprint:
%s

Previous sprint:
%s

Rate each employee.`
