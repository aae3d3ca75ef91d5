package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"rdtchat/internal/chatserver"
	"rdtchat/internal/config"
	"rdtchat/internal/logger"
	"rdtchat/internal/logging"
	"rdtchat/internal/rdttrace"
)

// Interface gráfica do servidor de chat: controla o bind do endpoint
// rendezvous e exibe métricas de sessões ativas e logs de eventos.
func main() {
	// Força driver de renderização por software no Windows se não estiver definido
	if runtime.GOOS == "windows" && strings.TrimSpace(os.Getenv("FYNE_DRIVER")) == "" {
		_ = os.Setenv("FYNE_DRIVER", "software")
	}

	// Carrega configurações salvas
	serverSettings, err := config.LoadServerSettings()
	if err != nil {
		serverSettings = config.DefaultServerSettings()
	}

	a := app.New()                    // instância do app Fyne
	w := a.NewWindow("RDT Chat Server") // janela principal
	hostEntry := widget.NewEntry()    // endereço de bind
	hostEntry.SetText(serverSettings.Host)
	portEntry := widget.NewEntry() // porta de bind
	portEntry.SetText(serverSettings.Port)

	status := widget.NewLabel("Parado")
	sessionsLab := widget.NewLabel("Sessões ativas: 0")
	retrLab := widget.NewLabel("Retransm.: 0")
	dupAckLab := widget.NewLabel("ACKs duplicados: 0")
	logView := logging.NewLogView()
	runUI := func(fn func()) { fyne.Do(fn) }

	var srv *chatserver.Server
	log := logger.NewLogger(logger.INFO, logWriter{onLine: func(s string) {
		runUI(func() {
			up := strings.ToUpper(s)
			var level logging.LogLevel
			switch {
			case strings.Contains(up, "ERROR"):
				level = logging.LogError
			case strings.Contains(up, "WARN"):
				level = logging.LogWarning
			default:
				level = logging.LogInfo
			}
			logView.Append(level, s)
		})
	}}, "chat-server")

	var tr *rdttrace.Logger

	startBtn := widget.NewButton("Iniciar", func() {
		host := strings.TrimSpace(hostEntry.Text)
		p, _ := strconv.Atoi(strings.TrimSpace(portEntry.Text))
		channel := config.DefaultChannelConfig()
		epCfg := config.DefaultEndpointConfig()
		srv = chatserver.New(host, channel, epCfg, tr, log)
		go func() {
			if err := srv.Serve(p); err != nil {
				runUI(func() { status.SetText("Erro: " + err.Error()) })
			}
		}()
		status.SetText(fmt.Sprintf("Rodando em %s:%d", host, p))
	})

	// Atualizador periódico de métricas
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			if srv == nil {
				continue
			}
			snap := srv.Metrics.GetSnapshot()
			runUI(func() {
				sessionsLab.SetText(fmt.Sprintf("Sessões ativas: %d", snap.ActiveSessions))
				retrLab.SetText(fmt.Sprintf("Retransm.: %d", snap.TotalRetransmissions))
				dupAckLab.SetText(fmt.Sprintf("ACKs duplicados: %d", snap.TotalDuplicateAcks))
			})
		}
	}()

	form := widget.NewForm(
		&widget.FormItem{Text: "Host", Widget: hostEntry},
		&widget.FormItem{Text: "Porta", Widget: portEntry},
	)
	buttons := container.NewHBox(startBtn)
	statsBox := container.NewVBox(status, sessionsLab, retrLab, dupAckLab, widget.NewLabel("Logs:"))
	top := container.NewVBox(form, buttons, statsBox)
	w.SetContent(container.NewBorder(top, nil, nil, nil, logView.CanvasObject()))
	w.Resize(fyne.NewSize(float32(serverSettings.WindowWidth), float32(serverSettings.WindowHeight)))

	w.SetCloseIntercept(func() {
		config.UpdateServerSettingsFromUI(serverSettings, hostEntry.Text, portEntry.Text)
		size := w.Content().Size()
		serverSettings.WindowWidth = int(size.Width)
		serverSettings.WindowHeight = int(size.Height)
		if err := config.SaveServerSettings(serverSettings); err != nil {
			fmt.Printf("Erro ao salvar configurações: %v\n", err)
		}
		w.Close()
	})

	w.ShowAndRun()
}

// logWriter adapts a callback to io.Writer so logger.Logger (which
// writes to an io.Writer) can feed the Fyne log view.
type logWriter struct {
	onLine func(string)
}

func (w logWriter) Write(p []byte) (int, error) {
	w.onLine(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
