package errors

import (
	"context"
	stderrors "errors"
)

// Errors raised by the command framework itself, before a cog runs
var (
	ErrOwnerOnly          = stderrors.New("command restricted to bot owners")
	ErrMissingPermissions = stderrors.New("missing permissions")
	ErrGuildOnly          = stderrors.New("command only available in guilds")
	ErrDatabaseOffline    = stderrors.New("database offline")
	ErrNotInVoice         = stderrors.New("user not in a voice channel")
)

// UserMessage is the global fallback that turns an error into a reply.
// Cogs map their own errors first; handled is false when nothing here
// matches and the error should just be logged.
func UserMessage(err error) (msg string, handled bool) {
	switch {
	case err == nil:
		return "", false
	case stderrors.Is(err, ErrOwnerOnly):
		return "❌ Este comando es solo para los dueños del bot.", true
	case stderrors.Is(err, ErrMissingPermissions):
		return "❌ No tienes permisos para usar este comando.", true
	case stderrors.Is(err, ErrGuildOnly):
		return "❌ Este comando solo puede usarse en un servidor.", true
	case stderrors.Is(err, ErrNotInVoice):
		return "🔇 Debes estar en un canal de voz para usar este comando.", true
	case stderrors.Is(err, ErrDatabaseOffline):
		return "⚠️ La base de datos no está disponible, inténtalo más tarde.", true
	case stderrors.Is(err, context.DeadlineExceeded):
		return "⌛ La operación tardó demasiado, inténtalo de nuevo.", true
	case stderrors.Is(err, context.Canceled):
		return "⚠️ La operación fue cancelada.", true
	}
	return "❌ Ocurrió un error inesperado.", false
}

// Is, As and New re-export the standard helpers so callers that import this
// package do not need a second alias for the standard library.
var (
	Is  = stderrors.Is
	As  = stderrors.As
	New = stderrors.New
)
