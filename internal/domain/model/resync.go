package model

// ResyncReport summarizes one resync pass over all credentials.
type ResyncReport struct {
	Credentials int // credentials examined
	Keys        int // keys tried against each credential
	Resolved    int // credentials with a matching key
	Lost        int // credentials no key decrypts
	Repaired    int // credentials whose association rows were rewritten
}
