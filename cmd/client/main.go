package main

import (
	"bufio"
	"context"
	"fmt"
	"minimessenger/domain"
	"minimessenger/infrastructure/grpc/client"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:9090"`
	Token         string `env:"CHAT_TOKEN,required=true"`
	LogLevel      string `env:"LOG_LEVEL,default=WARN"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run reads "to: text" lines from stdin and prints every event received.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chatClient, err := client.Dial(config.ServerAddress)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing connection...")
		_ = chatClient.Close()
	}()

	stream, err := chatClient.Connect(ctx, config.Token)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open stream: %w", err)
	}
	fmt.Printf(">>> Connected to %s, type \"to: text\" (Ctrl+C to quit)\n", config.ServerAddress)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			intent, ok := parseLine(scanner.Text())
			if !ok {
				color.Yellow.Println("expected \"to: text\"")
				continue
			}
			if err := stream.Send(intent.To, intent.Text); err != nil {
				log.Error("Send failed", "error", err)
				return
			}
		}
		_ = stream.CloseSend()
	}()

	for {
		e, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("stream error: %w", err)
		}
		fmt.Println(render(e))
	}
}

func parseLine(line string) (domain.SendIntent, bool) {
	to, text, found := strings.Cut(line, ":")
	to, text = strings.TrimSpace(to), strings.TrimSpace(text)
	if !found || to == "" || text == "" {
		return domain.SendIntent{}, false
	}
	return domain.SendIntent{To: to, Text: text}, true
}

func render(e domain.Envelope) string {
	switch e.Type {
	case domain.EventMessageDelivered:
		m := e.Message
		return fmt.Sprintf("[%s] %s -> %s: %s",
			m.Timestamp.Local().Format(time.TimeOnly), color.Cyan.Render(m.From), m.To, m.Text)
	case domain.EventSendError:
		return color.Red.Sprintf("send failed: %s", e.Reason)
	default:
		return fmt.Sprintf("unexpected event %q", e.Type)
	}
}
