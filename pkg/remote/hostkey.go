package remote

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// InsecureIgnoreHostKey accepts any host key. Appliances are commonly
// reinstalled with fresh keys, so this is the default; it leaves the
// connection open to interception.
func InsecureIgnoreHostKey() ssh.HostKeyCallback {
	return ssh.InsecureIgnoreHostKey()
}

// KnownHosts verifies host keys against OpenSSH known_hosts files.
func KnownHosts(files ...string) (ssh.HostKeyCallback, error) {
	cb, err := knownhosts.New(files...)
	if err != nil {
		return nil, errors.Wrap(err, "remote: load known_hosts")
	}
	return cb, nil
}

// FixedHostKey accepts exactly one key, given in authorized_keys format.
func FixedHostKey(authorizedKey []byte) (ssh.HostKeyCallback, error) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey(authorizedKey)
	if err != nil {
		return nil, errors.Wrap(err, "remote: parse host key")
	}
	return ssh.FixedHostKey(pub), nil
}
