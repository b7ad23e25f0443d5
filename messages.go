package main

// =============================================================================
// General messages
// =============================================================================

const (
	MsgAppTitle       = "VendePro"
	MsgAppSubtitle    = "Tu asistente para vender más rápido"
	MsgGoodbye        = "¡Hasta pronto!"
	MsgLocked         = "Bloqueado. Se pedirá el PIN en el próximo inicio."
	MsgUnexpectedErr  = "Error inesperado: %s"
	MsgCopied         = "Copiado al portapapeles."
	MsgCopyFailed     = "No se pudo copiar: %s"
	MsgHistoryCleared = "Historial borrado."
)

// =============================================================================
// Lock screen
// =============================================================================

const (
	MsgPINTitle       = "Introduce tu PIN"
	MsgPINDescription = "4 dígitos"
	MsgPINIncorrect   = "PIN incorrecto"
	MsgPINUnlocked    = "Desbloqueado"
)

// =============================================================================
// Main menu
// =============================================================================

const (
	MenuSell    = "📷 Vender"
	MenuHistory = "🕘 Mis Ventas"
	MenuTips    = "🎯 Estrategia"
	MenuQuit    = "Salir"
)

// =============================================================================
// Sell flow
// =============================================================================

const (
	MsgPhotoTitle       = "Foto del producto"
	MsgPhotoDescription = "Ruta a un archivo o URL http(s)"
	MsgPhotoLoading     = "Cargando foto..."
	MsgPhotoLoaded      = "Foto cargada (%s)"
	MsgPhotoFailed      = "No se pudo cargar la foto: %s"

	MsgDetailsTitle     = "Detalles de venta"
	MsgPlatformTitle    = "Plataforma"
	MsgMinPriceTitle    = "Precio mínimo (€)"
	MsgMinPriceHint     = "Opcional"
	MsgMinPriceInvalid  = "introduce un número, por ejemplo 25 o 25,50"
	MsgUrgencyTitle     = "Urgencia"
	MsgDeliveryTitle    = "Entrega"
	MsgAnalyzeNow       = "¿Analizar ahora?"
	MsgAnalyzing        = "Investigando mercado y escribiendo tu anuncio..."
	MsgEnhancing        = "Mejorando la foto..."
	MsgEnhanced         = "Foto mejorada."
	MsgEnhanceUnchanged = "No se pudo mejorar la foto. Se mantiene la original."
	MsgEnhancedSaved    = "Foto mejorada guardada en %s"

	MsgActionsTitle  = "¿Qué quieres hacer?"
	ActionCopy       = "Copiar %s"
	ActionEnhance    = "✨ Mejorar foto"
	ActionSaveImage  = "💾 Guardar foto mejorada"
	ActionNewListing = "Nuevo anuncio"
	ActionBack       = "Volver al menú"
	MsgSourcesTitle  = "Fuentes de mercado"
)

// =============================================================================
// History
// =============================================================================

const (
	MsgHistoryTitle   = "Mis Ventas"
	MsgHistoryEmpty   = "Aún no hay anuncios guardados."
	ActionClearAll    = "🗑  Borrar historial"
	MsgConfirmClear   = "¿Borrar todo el historial?"
	MsgHistoryHeading = "%d anuncio(s) guardado(s)"
)
