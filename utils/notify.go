// utils/notify.go
package utils

import "log"

// Notifier = pengirim notifikasi eksternal (email). Fire-and-forget: dipanggil
// lewat goroutine SETELAH transaksi commit, kegagalannya tidak pernah
// membatalkan transisi yang sudah tersimpan. Default hanya mencatat ke log;
// deployment menggantinya dengan pengirim sungguhan.
var Notifier = func(to, subject, body string) error {
	log.Printf("[NOTIFY] to=%s subject=%q", to, subject)
	return nil
}

// NotifyAsync menjalankan Notifier di goroutine dan menelan error-nya.
func NotifyAsync(to, subject, body string) {
	if to == "" {
		return
	}
	go func() {
		if err := Notifier(to, subject, body); err != nil {
			log.Printf("[NOTIFY] gagal kirim ke %s: %v", to, err)
		}
	}()
}
