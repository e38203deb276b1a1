package profile

// UserProfile is the durable per-user record the tools read and
// mutate. Stored as User.json in the user's data directory.
type UserProfile struct {
	Tasks     []Task   `json:"tasks"`
	Values    []string `json:"values"`
	Interests []string `json:"interests"`
}

func NewUserProfile() *UserProfile {
	return &UserProfile{
		Tasks:     []Task{},
		Values:    []string{},
		Interests: []string{},
	}
}

func (p *UserProfile) AddTask(t Task) {
	p.Tasks = append(p.Tasks, t)
}

// IncompleteTaskIndexes returns positions into Tasks for every task
// that is not complete, in stored order. Callers that present a
// numbered list to the model resolve picks through this snapshot so a
// concurrent append cannot shift the target.
func (p *UserProfile) IncompleteTaskIndexes() []int {
	var idx []int
	for i, t := range p.Tasks {
		if !t.IsComplete() {
			idx = append(idx, i)
		}
	}
	return idx
}

// GuestName marks a session whose owner has not introduced
// themselves yet.
const GuestName = "Guest"

// RuntimeProfile is the per-user session state. Stored as
// Runtime.json.
type RuntimeProfile struct {
	ID              int64  `json:"id"`
	UserName        string `json:"userName"`
	Character       string `json:"character"`
	NSFW            bool   `json:"nsfw"`
	SD              bool   `json:"sd"`
	LastMessageTime string `json:"lastMessageTime,omitempty"`
}

func NewRuntimeProfile(id int64) *RuntimeProfile {
	return &RuntimeProfile{
		ID:       id,
		UserName: GuestName,
	}
}

func (r *RuntimeProfile) IsGuest() bool {
	return r.UserName == "" || r.UserName == GuestName
}

// CanChat reports whether the session finished the intro flow: the
// user has a name and picked a character.
func (r *RuntimeProfile) CanChat() bool {
	return !r.IsGuest() && r.Character != ""
}
