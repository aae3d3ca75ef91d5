package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"rdtchat/internal/chatclient"
	"rdtchat/internal/chatui"
	"rdtchat/internal/config"
	"rdtchat/internal/ui"
)

// Interface gráfica do cliente de chat: login, composição de
// mensagens, roster de usuários e transcript de conversa.
func main() {
	if runtime.GOOS == "windows" && strings.TrimSpace(os.Getenv("FYNE_DRIVER")) == "" {
		_ = os.Setenv("FYNE_DRIVER", "software")
	}

	clientSettings, err := config.LoadClientSettings()
	if err != nil {
		clientSettings = config.DefaultClientSettings()
	}

	a := app.New()
	w := a.NewWindow("RDT Chat Client")

	hostEntry := widget.NewEntry()
	hostEntry.SetText(clientSettings.Host)
	portEntry := widget.NewEntry()
	portEntry.SetText(clientSettings.Port)
	userEntry := widget.NewEntry()
	userEntry.SetText(clientSettings.Username)

	connStatus := ui.NewConnectionStatus()
	transcript := chatui.NewTranscript()
	roster := chatui.NewRoster("Users")

	chatEntry := widget.NewEntry()
	chatEntry.SetPlaceHolder("direct peer or group name")
	messageEntry := widget.NewEntry()
	messageEntry.SetPlaceHolder("message")

	var client *chatclient.Client

	connectBtn := widget.NewButton("Connect", func() {
		host := strings.TrimSpace(hostEntry.Text)
		p, _ := strconv.Atoi(strings.TrimSpace(portEntry.Text))
		user := strings.TrimSpace(userEntry.Text)
		if err := config.ValidateUsername(user); err != nil {
			dialog.ShowError(err, w)
			return
		}
		channel := config.DefaultChannelConfig()
		epCfg := config.DefaultEndpointConfig()
		c, err := chatclient.Dial(host, p, user, channel, epCfg, nil)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		client = c
		connStatus.SetStatus(true)
	})

	refreshUsersBtn := widget.NewButton("Refresh users", func() {
		if client == nil {
			return
		}
		users, err := client.ListUsers()
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		roster.SetEntries(users)
	})

	sendGroupBtn := widget.NewButton("Send to group", func() {
		if client == nil {
			return
		}
		if err := client.SendGroup(chatEntry.Text, messageEntry.Text); err != nil {
			dialog.ShowError(err, w)
			return
		}
		messageEntry.SetText("")
	})

	sendDirectBtn := widget.NewButton("Send direct", func() {
		if client == nil {
			return
		}
		if err := client.SendDirect(chatEntry.Text, messageEntry.Text); err != nil {
			dialog.ShowError(err, w)
			return
		}
		messageEntry.SetText("")
	})

	loadHistoryBtn := widget.NewButton("Load history", func() {
		if client == nil {
			return
		}
		msgs, err := client.FetchHistory(chatEntry.Text)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		transcript.SetMessages(msgs)
	})

	createGroupBtn := widget.NewButton("Create group", func() {
		if client == nil {
			return
		}
		g, err := client.CreateGroup(chatEntry.Text)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		dialog.ShowInformation("Group created", fmt.Sprintf("%s — key: %s", g.Name, g.Key), w)
	})

	joinGroupBtn := widget.NewButton("Join group", func() {
		if client == nil {
			return
		}
		_, err := client.JoinGroup(chatEntry.Text, messageEntry.Text)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		dialog.ShowInformation("Joined", chatEntry.Text, w)
	})

	form := widget.NewForm(
		&widget.FormItem{Text: "Host", Widget: hostEntry},
		&widget.FormItem{Text: "Port", Widget: portEntry},
		&widget.FormItem{Text: "Username", Widget: userEntry},
	)
	connectRow := container.NewHBox(connectBtn, connStatus, refreshUsersBtn)

	composer := container.NewVBox(
		widget.NewLabel("Chat (direct peer or group name):"),
		chatEntry,
		messageEntry,
		container.NewHBox(sendDirectBtn, sendGroupBtn, loadHistoryBtn),
		container.NewHBox(createGroupBtn, joinGroupBtn),
	)

	left := container.NewVBox(form, connectRow, roster)
	right := container.NewVBox(composer, transcript)
	w.SetContent(container.NewBorder(nil, nil, left, nil, right))
	w.Resize(fyne.NewSize(float32(clientSettings.WindowWidth), float32(clientSettings.WindowHeight)))

	w.SetCloseIntercept(func() {
		config.UpdateClientSettingsFromUI(clientSettings, config.ClientUIParams{
			Host:        hostEntry.Text,
			Port:        portEntry.Text,
			Username:    userEntry.Text,
			LossProb:    clientSettings.LossProb,
			CorruptProb: clientSettings.CorruptProb,
			Timeout:     clientSettings.Timeout,
			Retries:     clientSettings.Retries,
		})
		size := w.Content().Size()
		clientSettings.WindowWidth = int(size.Width)
		clientSettings.WindowHeight = int(size.Height)
		if err := config.SaveClientSettings(clientSettings); err != nil {
			fmt.Printf("Erro ao salvar configurações: %v\n", err)
		}
		if client != nil {
			client.Close()
		}
		w.Close()
	})

	w.ShowAndRun()
}
