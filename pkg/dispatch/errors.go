package dispatch

import "github.com/fusexd/metacore/pkg/fusexerr"

func errNoEnt(op, detail string) error    { return fusexerr.New(op, fusexerr.ENOENT, detail) }
func errInval(op, detail string) error    { return fusexerr.New(op, fusexerr.EINVAL, detail) }
func errPerm(op, detail string) error     { return fusexerr.New(op, fusexerr.EPERM, detail) }
func errExist(op, detail string) error    { return fusexerr.New(op, fusexerr.EEXIST, detail) }
func errNotEmpty(op, detail string) error { return fusexerr.New(op, fusexerr.ENOTEMPTY, detail) }
func errTimedOut(op, detail string) error { return fusexerr.New(op, fusexerr.ETIMEDOUT, detail) }
func errL2NSync(op, detail string) error  { return fusexerr.New(op, fusexerr.EL2NSYNC, detail) }
func errNameTooLong(op, detail string) error {
	return fusexerr.New(op, fusexerr.ENAMETOOLONG, detail)
}
func errIO(op, detail string) error { return fusexerr.New(op, fusexerr.EIO, detail) }
