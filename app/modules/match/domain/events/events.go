package matchevents

// StreamName is the JetStream stream carrying every game subject.
const StreamName = "arena"

// StreamSubjects are the subjects bound to StreamName.
var StreamSubjects = []string{"game.>"}

const (
	// GameDispatchV1 asks the game runner to play a match.
	GameDispatchV1 = "game.dispatch.v1"
	// GameResultV1 carries the outcome of a played match back to the service.
	GameResultV1 = "game.result.v1"
)

// DispatchBotV1 is one participant of a dispatched game.
type DispatchBotV1 struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Repo  string `json:"repo"`
	Image string `json:"image"`
	// Token grants read access to Repo. Queue games run already published bots
	// and carry no token.
	Token string `json:"token,omitempty"`
}

// GameDispatchPayloadV1 is published on GameDispatchV1.
type GameDispatchPayloadV1 struct {
	ID    string          `json:"id"`
	Image string          `json:"image"`
	Phase string          `json:"phase"`
	Round int             `json:"round"`
	Bots  []DispatchBotV1 `json:"bots"`
}
