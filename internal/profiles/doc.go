// Package profiles is the profile store: the named field sets kept in the
// synced storage area under "profiles", plus the "lastProfile" pointer.
//
// Records are either plain field sets or ciphertext produced by cryptox. The
// JSON shape tells them apart: an object is plain, a string is ciphertext.
package profiles
