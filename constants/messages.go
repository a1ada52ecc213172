package constants

// User-facing messages. The service speaks Greek to its clients.
const (
	MsgUnsupportedType    = "Μόνο PDF και εικόνες (JPEG/PNG) επιτρέπονται"
	MsgNoFile             = "Δεν υπάρχει αρχείο"
	MsgFileTooLarge       = "Το αρχείο υπερβαίνει το μέγιστο επιτρεπτό μέγεθος"
	MsgPDFFailed          = "Αποτυχία επεξεργασίας PDF"
	MsgImageFailed        = "Αποτυχία επεξεργασίας εικόνας"
	MsgAnalysisFailed     = "Η αυτόματη ανάλυση απέτυχε, αλλά το κείμενο εξήχθη επιτυχώς."
	MsgFileAnalysis       = "Αποτυχία ανάλυσης αρχείου"
	MsgNoText             = "Δεν δόθηκε κείμενο για ανάλυση"
	MsgNoQuestion         = "Δεν δόθηκε ερώτηση"
	MsgNoContext          = "Δεν υπάρχει διαθέσιμο context για την ερώτηση. Παρακαλώ ανεβάστε πρώτα ένα έγγραφο για ανάλυση."
	MsgNoLatestAnalysis   = "Δεν υπάρχει αποθηκευμένη ανάλυση. Παρακαλώ ανεβάστε ένα έγγραφο για ανάλυση."
	MsgTimeout            = "Η επεξεργασία ξεπέρασε το χρονικό όριο. Παρακαλώ δοκιμάστε ξανά."
	MsgInternal           = "Παρουσιάστηκε εσωτερικό σφάλμα"
	MsgInvalidBody        = "Μη έγκυρο αίτημα"
	MsgHistoryUnavailable = "Το ιστορικό αναλύσεων δεν είναι διαθέσιμο"
)
