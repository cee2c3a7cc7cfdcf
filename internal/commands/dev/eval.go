package dev

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/PancyStudios/UselessBotGo/pkg/discord"
	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// evalPackage is the import path the exported bot values live under
const evalPackage = "uselessbot/dev"

// maxOutput keeps the reply under Discord's message limit
const maxOutput = 1900

// createEvalCommand creates the /dev eval subcommand
func createEvalCommand(deps Deps) *discord.Command {
	return discord.NewCommand(
		"eval",
		"Evalúa código Go con acceso al bot (Peligroso)",
		"dev",
		func(ctx *discord.CommandContext) error { return evalHandler(ctx, deps) },
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "codigo",
			Description: "Código o expresión Go a evaluar",
			Required:    true,
		},
	).AsDev()
}

// stripCodeBlock removes a surrounding markdown code fence
func stripCodeBlock(code string) string {
	code = strings.TrimSpace(code)
	code = strings.TrimPrefix(code, "```go")
	code = strings.TrimPrefix(code, "```")
	code = strings.TrimSuffix(code, "```")
	return strings.TrimSpace(code)
}

// symbols turns values into yaegi exports. Variables are exported as
// addressable values, the way yaegi's own stdlib symbols are.
func symbols(values map[string]interface{}) map[string]reflect.Value {
	out := make(map[string]reflect.Value, len(values))
	for name, v := range values {
		if v == nil {
			continue
		}
		rv := reflect.New(reflect.TypeOf(v)).Elem()
		rv.Set(reflect.ValueOf(v))
		out[name] = rv
	}
	return out
}

// evaluate runs code with the standard library and values available
func evaluate(ctx context.Context, code string, values map[string]interface{}) (string, error) {
	i := interp.New(interp.Options{})

	if err := i.Use(stdlib.Symbols); err != nil {
		return "", fmt.Errorf("cargando stdlib: %w", err)
	}
	if err := i.Use(interp.Exports{evalPackage + "/dev": symbols(values)}); err != nil {
		return "", fmt.Errorf("registrando variables: %w", err)
	}
	if _, err := i.Eval(`import . "` + evalPackage + `"`); err != nil {
		return "", fmt.Errorf("importando variables: %w", err)
	}

	res, err := i.EvalWithContext(ctx, code)
	if err != nil {
		return "", err
	}

	out := "nil"
	if res.IsValid() && res.CanInterface() {
		out = fmt.Sprintf("%#v", res.Interface())
	}
	if len(out) > maxOutput {
		out = out[:maxOutput] + "... (truncado)"
	}
	return out, nil
}

// evalHandler handles the /dev eval command
func evalHandler(ctx *discord.CommandContext, deps Deps) error {
	start := time.Now()

	if err := ctx.Defer(); err != nil {
		return err
	}

	values := map[string]interface{}{
		"Ctx":     ctx,
		"Bot":     ctx.Client,
		"Session": ctx.Session,
	}
	for name, v := range deps {
		values[name] = v
	}

	res, err := evaluate(ctx.Ctx, stripCodeBlock(ctx.GetStringOption("codigo")), values)
	logger.Debug(fmt.Sprintf("Eval completado en %s", time.Since(start)), "DevEval")

	if err != nil {
		return ctx.Send(fmt.Sprintf("❌ **Error de Ejecución:**\n```go\n%v\n```", err))
	}
	return ctx.Send(fmt.Sprintf("✅ **Resultado:**\n```go\n%s\n```", res))
}
