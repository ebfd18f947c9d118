// Command wsclient sends one command to a running VoiceAst server and prints
// every message of the resulting turn.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voiceast/server/domain"
	"github.com/voiceast/server/domain/repositories"
	"github.com/voiceast/server/internal/api"
)

// 100ms of 16 kHz 16-bit mono PCM
const streamChunkSize = 3200

func main() {
	addr := flag.String("addr", "localhost:8000", "server host:port")
	text := flag.String("text", "", "text command to send as voice_command")
	wavPath := flag.String("wav", "", "WAV file to send (16 kHz mono PCM)")
	stream := flag.Bool("stream", false, "send the WAV file as audio_stream chunks instead of voice_audio_file")
	clientID := flag.String("client-id", "wsclient", "client ID used when requesting a token")
	secret := flag.String("secret", "", "client secret key; when set a JWT is requested first")
	timeout := flag.Duration("timeout", 60*time.Second, "how long to wait for the turn to finish")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if *text == "" && *wavPath == "" {
		fmt.Fprintln(os.Stderr, "one of -text or -wav is required")
		flag.Usage()
		os.Exit(2)
	}

	headers := http.Header{}
	if *secret != "" {
		token, err := requestToken(*addr, *clientID, *secret)
		if err != nil {
			logger.Fatal("Failed to obtain token", zap.Error(err))
		}
		headers.Add("Authorization", "Bearer "+token)
		logger.Info("Authenticated", zap.String("clientID", *clientID))
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	logger.Info("Connecting", zap.String("url", u.String()))

	c, _, err := websocket.DefaultDialer.Dial(u.String(), headers)
	if err != nil {
		logger.Fatal("Failed to dial", zap.Error(err))
	}
	defer c.Close()

	done := make(chan struct{})
	go handleIncomingMessages(c, done, logger)

	switch {
	case *text != "":
		err = c.WriteJSON(map[string]interface{}{"type": "voice_command", "text": *text})
	case *stream:
		err = streamWAV(c, *wavPath, logger)
	default:
		err = sendWAV(c, *wavPath)
	}
	if err != nil {
		logger.Fatal("Failed to send command", zap.Error(err))
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	select {
	case <-done:
	case <-time.After(*timeout):
		logger.Warn("Timed out waiting for the turn to finish")
	case <-interrupt:
		logger.Info("Interrupted")
	}

	// Cleanly close the connection
	err = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		logger.Debug("Failed to write close message", zap.Error(err))
	}
}

func requestToken(addr, clientID, secret string) (string, error) {
	body, err := json.Marshal(api.TokenRequest{ClientID: clientID, SecretKey: secret})
	if err != nil {
		return "", err
	}

	resp, err := http.Post("http://"+addr+"/api/v1/auth/token", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("authentication failed: %s", string(data))
	}

	var tokenResp api.TokenResponse
	if err := json.Unmarshal(data, &tokenResp); err != nil {
		return "", err
	}
	return tokenResp.Token, nil
}

func sendWAV(c *websocket.Conn, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.WriteJSON(map[string]interface{}{
		"type":  "voice_audio_file",
		"audio": base64.StdEncoding.EncodeToString(data),
	})
}

// streamWAV paces PCM chunks at roughly real time, like a microphone would
func streamWAV(c *websocket.Conn, path string, logger *zap.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) > repositories.WAVHeaderSize {
		data = data[repositories.WAVHeaderSize:]
	}

	chunks := 0
	for start := 0; start < len(data); start += streamChunkSize {
		end := start + streamChunkSize
		if end > len(data) {
			end = len(data)
		}
		msg := map[string]interface{}{
			"type": "audio_stream",
			"data": base64.StdEncoding.EncodeToString(data[start:end]),
		}
		if err := c.WriteJSON(msg); err != nil {
			return fmt.Errorf("failed to send chunk %d: %w", chunks, err)
		}
		chunks++
		time.Sleep(100 * time.Millisecond)
	}

	logger.Info("Finished streaming audio", zap.Int("chunks", chunks), zap.Int("bytes", len(data)))
	return nil
}

// handleIncomingMessages prints every message and closes done after ready
func handleIncomingMessages(c *websocket.Conn, done chan struct{}, logger *zap.Logger) {
	defer close(done)
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Connection closed", zap.Error(err))
			}
			return
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warn("Failed to decode message", zap.Error(err))
			continue
		}

		if audio, ok := msg["audio"].(string); ok && audio != "" {
			msg["audio"] = fmt.Sprintf("<%d base64 chars>", len(audio))
		}
		pretty, _ := json.MarshalIndent(msg, "", "  ")
		fmt.Println(string(pretty))

		if msg["type"] == domain.TypeReady {
			return
		}
	}
}
