package session

type State int

const (
	StateIdle State = iota
	StateLoading
	StateScrolling
	StateAwaitingConfirmation
	StateFetchingImages
	StatePackaging
	StateTriggeringDownload
	StateNavigatingNext
	StateStopped
)

var stateNames = [...]string{
	StateIdle:                 "idle",
	StateLoading:              "loading",
	StateScrolling:            "scrolling",
	StateAwaitingConfirmation: "awaiting-confirmation",
	StateFetchingImages:       "fetching-images",
	StatePackaging:            "packaging",
	StateTriggeringDownload:   "triggering-download",
	StateNavigatingNext:       "navigating-next",
	StateStopped:              "stopped",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
