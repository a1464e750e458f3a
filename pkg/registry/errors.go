package registry

import "github.com/fusexd/metacore/pkg/fusexerr"

func fusexErrNoSuchClient(uuid string) error {
	return fusexerr.New("evict", fusexerr.ENOENT, "no such client: "+uuid)
}

func errInvalidEvictReason(reason string) error {
	return fusexerr.New("evict", fusexerr.EINVAL, "invalid evict reason: "+reason)
}
