package security

import "github.com/alexedwards/argon2id"

// Cheap parameters so the suite stays fast.
var testArgonParams = argon2id.Params{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   16,
}
