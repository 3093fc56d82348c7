// Package password hashes and verifies login passwords.
//
// # Output format
//
// New hashes are Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.Compare] also accepts bcrypt hashes ($2a$, $2b$, $2y$) left over from
// earlier deployments, so those users can still sign in. [Argon2.NeedsUpgrade]
// reports true for them and for Argon2id hashes with weaker parameters.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other authcore package.
//   - Log plaintext passwords.
package password
