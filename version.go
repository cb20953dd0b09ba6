package mobileidbridge

const VERSION = "1.2.0"
