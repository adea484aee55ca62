package authflow

// State is the position of the auth flow. Every externally triggered move
// between states must pass IsValidTransition; anything else is a bug in the
// caller, not a user error.
type State string

const (
	// StateRestoring — startup: deciding whether a persisted session is
	// still usable. Never re-entered after startup.
	StateRestoring State = "restoring"

	StateWalletConnect State = "wallet_connect"
	StateAuthOptions   State = "auth_options"
	StateEmailSignup   State = "email_signup"
	StateEmailLogin    State = "email_login"
	StateAuthenticated State = "authenticated"
	StateProfile       State = "profile"
)

// ValidTransitions maps each state to the states it may move to. Same-state
// "transitions" are always allowed and treated as no-ops.
var ValidTransitions = map[State][]State{
	StateRestoring: {
		StateWalletConnect, // nothing to restore, or restore failed
		StateAuthenticated, // session restored and verified
	},
	StateWalletConnect: {
		StateAuthenticated, // wallet-only session established
		StateAuthOptions,   // wallet connected, user continues to account step
	},
	StateAuthOptions: {
		StateEmailSignup,
		StateEmailLogin,
		StateWalletConnect, // back
		StateAuthenticated, // upgrade abandoned, wallet-only session kept
	},
	StateEmailSignup: {
		StateAuthenticated, // signup (and best-effort link) done
		StateAuthOptions,   // back
	},
	StateEmailLogin: {
		StateAuthenticated,
		StateAuthOptions, // back
	},
	StateAuthenticated: {
		StateProfile,
		StateAuthOptions,   // wallet-only session upgrading to an account
		StateWalletConnect, // logout, or forced by account/chain change
	},
	StateProfile: {
		StateAuthenticated,
		StateWalletConnect, // logout from the profile screen
	},
}

// IsValidTransition reports whether the flow may move from one state to
// another.
func IsValidTransition(from, to State) bool {
	if from == to {
		return true
	}
	for _, allowed := range ValidTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
