package one

// VMState is the STATE field of a VM document.
type VMState int

const (
	StateInit VMState = iota
	StatePending
	StateHold
	StateActive
	StateStopped
	StateSuspended
	StateDone
	StateFailed
	StatePoweroff
	StateUndeployed
	StateCloning
	StateCloningFailure
)

var vmStateNames = [...]string{
	StateInit:           "INIT",
	StatePending:        "PENDING",
	StateHold:           "HOLD",
	StateActive:         "ACTIVE",
	StateStopped:        "STOPPED",
	StateSuspended:      "SUSPENDED",
	StateDone:           "DONE",
	StateFailed:         "FAILED",
	StatePoweroff:       "POWEROFF",
	StateUndeployed:     "UNDEPLOYED",
	StateCloning:        "CLONING",
	StateCloningFailure: "CLONING_FAILURE",
}

func (s VMState) String() string {
	if s < 0 || int(s) >= len(vmStateNames) {
		return "UNKNOWN"
	}
	return vmStateNames[s]
}

// Running reports whether the VM is deployed and not paused.
func (s VMState) Running() bool {
	return s == StateActive
}
