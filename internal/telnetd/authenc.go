package telnetd

// This file dispatches the AUTHENTICATION (RFC 2941) and ENCRYPT (RFC 2946)
// suboptions to their respective collaborators. Both are optional: a nil
// collaborator means the option was never agreed in the first place
// (ReceiveWill refuses both, ReceiveDo refuses ENCRYPT and never accepts
// AUTHENTICATION), so these dispatchers only need to guard
// against the narrow race of a payload arriving after the collaborator was
// torn down mid-session.

func (e *Engine) subAuthentication(payload []byte) {
	if e.collab.Auth == nil || len(payload) == 0 {
		return
	}
	switch payload[0] {
	case TelQualIs:
		e.collab.Auth.AuthIs(payload[1:])
	case TelQualName:
		e.collab.Auth.AuthName(payload[1:])
	case TelQualReply:
		// AUTH REPLY is handled identically to IS by this server: both
		// carry an authentication-mechanism-specific blob to evaluate.
		e.collab.Auth.AuthIs(payload[1:])
	case TelQualSend:
		// We are the server; we don't expect the peer to SEND us a
		// mechanism list. Ignore.
	}
}

func (e *Engine) subEncrypt(payload []byte) {
	if e.collab.Encrypt == nil || len(payload) == 0 {
		return
	}
	switch payload[0] {
	case EncryptIs:
		e.collab.Encrypt.EncryptIs(payload[1:])
	case EncryptSupport:
		e.collab.Encrypt.EncryptSupport(payload[1:])
	case EncryptReply:
		e.collab.Encrypt.EncryptReply(payload[1:])
	case EncryptStart:
		e.collab.Encrypt.EncryptStart(payload[1:])
	case EncryptEnd:
		e.collab.Encrypt.EncryptEnd()
	case EncryptReqStart:
		e.collab.Encrypt.EncryptRequestStart(payload[1:])
	case EncryptReqEnd:
		e.collab.Encrypt.EncryptRequestEnd()
	case EncryptEncKeyID:
		e.collab.Encrypt.EncryptEncKeyID(payload[1:])
	case EncryptDecKeyID:
		e.collab.Encrypt.EncryptDecKeyID(payload[1:])
	}
}
